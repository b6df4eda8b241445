package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Endpoint paths per report kind: JSON body, then query-string variant.
var endpoints = map[string][2]string{
	"location": {"/api/lora/localizacao", "/api/lora/localizacao/get"},
	"weight":   {"/api/balanca/pesagem", "/api/balanca/pesagem/get"},
	"weather":  {"/api/estacao/leitura", "/api/estacao/leitura"},
}

func NewClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
}

type Simulator struct {
	Client *resty.Client
	Kind   string
	Method string
	Token  string
	Target string
	Scale  string

	rng *rand.Rand
}

func (s *Simulator) Check() error {
	if _, ok := endpoints[s.Kind]; !ok {
		return fmt.Errorf("unknown kind %q", s.Kind)
	}
	if s.Method != http.MethodPost && s.Method != http.MethodGet {
		return fmt.Errorf("unsupported method %q", s.Method)
	}
	return nil
}

// Report builds one randomized report in the wire format of Kind.
func (s *Simulator) Report() map[string]string {
	r := map[string]string{"tkn": s.Token}
	switch s.Kind {
	case "location":
		r["id"] = s.Target
		r["lat"] = format(-23.55 + s.uniform(-0.01, 0.01))
		r["lon"] = format(-46.65 + s.uniform(-0.01, 0.01))
		r["bat"] = format(s.uniform(80, 100))
	case "weight":
		r["balanca_id"] = s.Scale
		r["animal_id"] = s.Target
		r["peso"] = format(s.uniform(300, 550))
	case "weather":
		r["estacao_id"] = s.Target
		r["temp"] = format(s.uniform(15, 32))
		r["umid"] = format(s.uniform(30, 90))
		r["press"] = format(s.uniform(980, 1030))
		r["vento"] = format(s.uniform(0, 25))
		r["dir_vento"] = format(s.uniform(0, 360))
		r["precip"] = format(s.uniform(0, 5))
	}
	return r
}

// SendOne posts a single report and returns the response status and body.
func (s *Simulator) SendOne(ctx context.Context) (int, string, error) {
	paths := endpoints[s.Kind]
	req := s.Client.R().SetContext(ctx)
	report := s.Report()

	var (
		resp *resty.Response
		err  error
	)
	if s.Method == http.MethodGet {
		resp, err = req.SetQueryParams(report).Get(paths[1])
	} else {
		resp, err = req.SetBody(report).Post(paths[0])
	}
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode(), resp.String(), nil
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func format(v float64) string {
	return fmt.Sprintf("%.6g", math.Round(v*1e4)/1e4)
}

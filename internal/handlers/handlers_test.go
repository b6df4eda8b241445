package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ruralsys/farm-telemetry/internal/config"
	"github.com/ruralsys/farm-telemetry/internal/ingest"
	"github.com/ruralsys/farm-telemetry/internal/logging"
	"github.com/ruralsys/farm-telemetry/internal/lora"
	"github.com/ruralsys/farm-telemetry/internal/metrics"
	"github.com/ruralsys/farm-telemetry/internal/models"
	"github.com/ruralsys/farm-telemetry/internal/repository"
	"github.com/ruralsys/farm-telemetry/internal/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	fx     *repotest.Fixture
}

func newEnv(t *testing.T, gateway lora.Gateway) *testEnv {
	t.Helper()
	return newEnvOn(t, repotest.NewDB(t), gateway)
}

func newEnvOn(t *testing.T, db *gorm.DB, gateway lora.Gateway) *testEnv {
	t.Helper()
	fx := repotest.Seed(t, db)
	store := repository.NewStore(db)
	svc := ingest.NewService(store, logging.Discard(), ingest.WithClock(func() time.Time { return fixedNow }))
	if gateway == nil {
		gateway = lora.NewSimulator(1, logging.Discard())
	}
	reg := prometheus.NewRegistry()

	router := NewRouter(RouterDeps{
		Store:          store,
		Service:        svc,
		Gateway:        gateway,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		Logger:         logging.Discard(),
		RequestTimeout: 5 * time.Second,
	})
	return &testEnv{router: router, db: db, fx: fx}
}

func (e *testEnv) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestLocationReportAccepted(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodPost, "/api/lora/localizacao",
		`{"id":"BRINCO123","lat":-23.55,"lon":-46.63,"bat":95,"tkn":"token-secreto-api"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"sucesso","animal":"BRINCO123"}`, w.Body.String())

	var animal models.Animal
	require.NoError(t, e.db.First(&animal, e.fx.Animal.ID).Error)
	require.True(t, animal.HasPosition())
	assert.InDelta(t, -23.55, *animal.LastLatitude, 1e-9)
	assert.EqualValues(t, 1, e.count(t, &models.LocationHistory{}))
}

func TestLocationReportInvalidToken(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodPost, "/api/lora/localizacao",
		`{"id":"BRINCO123","lat":-23.55,"lon":-46.63,"tkn":"invalid"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"erro":"invalid API token"}`, w.Body.String())

	var animal models.Animal
	require.NoError(t, e.db.First(&animal, e.fx.Animal.ID).Error)
	assert.False(t, animal.HasPosition())
	assert.Zero(t, e.count(t, &models.LocationHistory{}))
}

func TestLocationReportErrors(t *testing.T) {
	e := newEnv(t, nil)

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"id":`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"missing lon", `{"id":"BRINCO123","lat":-23.5,"tkn":"token-secreto-api"}`, http.StatusBadRequest},
		{"non numeric lat", `{"id":"BRINCO123","lat":"sul","lon":-46.6,"tkn":"token-secreto-api"}`, http.StatusBadRequest},
		{"no token", `{"id":"BRINCO123","lat":-23.5,"lon":-46.6}`, http.StatusUnauthorized},
		{"unknown device", `{"id":"NAO-EXISTE","lat":-23.5,"lon":-46.6,"tkn":"token-secreto-api"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(http.MethodPost, "/api/lora/localizacao", tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			body := decode(t, w)
			assert.NotEmpty(t, body["erro"])
			assert.Len(t, body, 1)
		})
	}
	assert.Zero(t, e.count(t, &models.LocationHistory{}))
}

func TestLocationQueryVariant(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodGet, "/api/lora/localizacao/get?id=BRINCO123&lat=-23.5&lon=-46.6&bat=70&tkn=token-secreto-api", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"sucesso","animal":"BRINCO123"}`, w.Body.String())
	assert.EqualValues(t, 1, e.count(t, &models.LocationHistory{}))
}

func TestWeightReportStringAndNumber(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodPost, "/api/balanca/pesagem",
		`{"balanca_id":"BALANCA001","animal_id":"BRINCO123","peso":"450.5","tkn":"token-secreto-api"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"sucesso","animal":"BRINCO123","peso":450.5}`, w.Body.String())

	w = e.do(http.MethodGet, "/api/balanca/pesagem/get?balanca_id=BALANCA001&animal_id=BRINCO123&peso=451&tkn=token-secreto-api", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"sucesso","animal":"BRINCO123","peso":451}`, w.Body.String())

	assert.EqualValues(t, 2, e.count(t, &models.WeightRecord{}))
}

func TestWeightReportUnknownScale(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodPost, "/api/balanca/pesagem",
		`{"balanca_id":"BALANCA999","animal_id":"BRINCO123","peso":300,"tkn":"token-secreto-api"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, e.count(t, &models.WeightRecord{}))
}

func TestWeatherReportBothMethods(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodPost, "/api/estacao/leitura",
		`{"estacao_id":"EST001","temp":25.1,"umid":"60","tkn":"token-secreto-api"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"sucesso","estacao":"EST001","timestamp":"2025-03-14T12:30:00Z"}`, w.Body.String())

	w = e.do(http.MethodGet, "/api/estacao/leitura?estacao_id=EST001&precip=2&tkn=token-secreto-api", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var readings []models.WeatherReading
	require.NoError(t, e.db.Order("id").Find(&readings).Error)
	require.Len(t, readings, 2)
	assert.Nil(t, readings[0].Pressure)
	assert.Nil(t, readings[0].WindSpeed)
	assert.Nil(t, readings[1].Temperature)
}

func TestUplinkUsesHeaderToken(t *testing.T) {
	e := newEnv(t, nil)
	body := `{"device_id":"BRINCO123","latitude":-23.56,"longitude":-46.64,"bateria":81,"firmware":"v1.2"}`

	w := e.do(http.MethodPost, "/api/lora/data", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid API token"}`, w.Body.String())

	w = e.do(http.MethodPost, "/api/lora/data", body, "X-API-Token", repotest.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"success","message":"uplink processed for BRINCO123","timestamp":"2025-03-14T12:30:00Z"}`, w.Body.String())
	assert.EqualValues(t, 1, e.count(t, &models.LocationHistory{}))
}

func TestQueryAPIRequiresToken(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodGet, "/api/v1/devices", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodGet, "/api/v1/devices", "", "X-API-Token", "invalid")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
}

func TestDevices(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodGet, "/api/v1/devices", "", "X-API-Token", repotest.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var list Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.True(t, list.Success)
	assert.Len(t, list.Data, 1)

	w = e.do(http.MethodGet, "/api/v1/devices/"+itoa(e.fx.Tracker.ID), "", "X-API-Token", repotest.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"device_id":"BRINCO123"`)

	w = e.do(http.MethodGet, "/api/v1/devices/"+itoa(e.fx.Tracker.ID), "", "X-API-Token", repotest.OtherToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodGet, "/api/v1/devices/abc", "", "X-API-Token", repotest.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPositionsAndHistory(t *testing.T) {
	e := newEnv(t, nil)

	for _, lat := range []string{"-23.50", "-23.51", "-23.52"} {
		w := e.do(http.MethodPost, "/api/lora/localizacao",
			`{"id":"BRINCO123","lat":`+lat+`,"lon":-46.6,"tkn":"token-secreto-api"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := e.do(http.MethodGet, "/api/v1/animals/positions", "", "X-API-Token", repotest.Token)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	positions := body["data"].([]any)
	require.Len(t, positions, 1)
	assert.Equal(t, "BRINCO123", positions[0].(map[string]any)["code"])

	w = e.do(http.MethodGet, "/api/v1/animals/"+itoa(e.fx.Animal.ID)+"/locations?per_page=2", "", "X-API-Token", repotest.Token)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Len(t, body["data"].([]any), 2)
	meta := body["meta"].(map[string]any)
	assert.EqualValues(t, 3, meta["total"])
	assert.EqualValues(t, 2, meta["per_page"])

	w = e.do(http.MethodGet, "/api/v1/animals/"+itoa(e.fx.Foreign.ID)+"/locations", "", "X-API-Token", repotest.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWeightsHistory(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodPost, "/api/balanca/pesagem",
		`{"balanca_id":"BALANCA001","animal_id":"BOV004","peso":310,"tkn":"token-secreto-api"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodGet, "/api/v1/animals/"+itoa(e.fx.Heifer.ID)+"/weights", "", "X-API-Token", repotest.Token)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	rows := body["data"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "automatic", rows[0].(map[string]any)["method"])
}

func TestRequestLocation(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodPost, "/api/v1/animals/"+itoa(e.fx.Animal.ID)+"/request-location", "", "X-API-Token", repotest.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, e.count(t, &models.LocationHistory{}))

	w = e.do(http.MethodPost, "/api/v1/animals/"+itoa(e.fx.Heifer.ID)+"/request-location", "", "X-API-Token", repotest.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type silentGateway struct{}

func (silentGateway) RequestLocation(context.Context, string) (ingest.LiveFix, error) {
	return ingest.LiveFix{}, lora.ErrNoAnswer
}

func (silentGateway) RequestReading(context.Context, models.WeatherStation) (ingest.LiveReading, error) {
	return ingest.LiveReading{}, lora.ErrNoAnswer
}

func TestRequestLocationGatewaySilent(t *testing.T) {
	e := newEnv(t, silentGateway{})

	w := e.do(http.MethodPost, "/api/v1/animals/"+itoa(e.fx.Animal.ID)+"/request-location", "", "X-API-Token", repotest.Token)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Zero(t, e.count(t, &models.LocationHistory{}))
}

type hotGateway struct{ silentGateway }

func (hotGateway) RequestReading(context.Context, models.WeatherStation) (ingest.LiveReading, error) {
	temp, rain := 33.0, 2.0
	return ingest.LiveReading{Temperature: &temp, Precipitation: &rain, Battery: 90, SignalDBm: -70}, nil
}

func TestRequestReadingRaisesAlert(t *testing.T) {
	e := newEnv(t, hotGateway{})
	path := "/api/v1/stations/" + itoa(e.fx.Station.ID)

	w := e.do(http.MethodPost, path+"/request-reading", "", "X-API-Token", repotest.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data LiveReadingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Alerts, 1)
	assert.Equal(t, "high_temperature", resp.Data.Alerts[0].Kind)

	w = e.do(http.MethodGet, path+"/alerts", "", "X-API-Token", repotest.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"].([]any), 1)

	w = e.do(http.MethodGet, path+"/readings", "", "X-API-Token", repotest.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"].([]any), 1)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	e.do(http.MethodPost, "/api/lora/localizacao", `{"id":"BRINCO123","lat":1,"lon":1,"tkn":"invalid"}`)
	w = e.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `farm_ingest_reports_total{kind="location",outcome="auth"} 1`)
}

func TestMalformedBodyCountedAsValidation(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodPost, "/api/balanca/pesagem", `{"balanca":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"erro":"invalid JSON body"}`, w.Body.String())

	w = e.do(http.MethodPost, "/api/lora/data", `not json`, "X-API-Token", repotest.Token)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid JSON body"}`, w.Body.String())

	w = e.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `farm_ingest_reports_total{kind="weight",outcome="validation"} 1`)
	assert.Contains(t, w.Body.String(), `farm_ingest_reports_total{kind="uplink",outcome="validation"} 1`)
}

func TestConcurrentLocationReportsOnFileDatabase(t *testing.T) {
	db, err := repository.NewDatabase(&config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   t.TempDir() + "/farm.db",
		MaxOpenConns: 25,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	e := newEnvOn(t, db, nil)

	const n = 40
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := e.do(http.MethodPost, "/api/lora/localizacao",
				`{"id":"BRINCO123","lat":-23.55,"lon":-46.63,"bat":95,"tkn":"token-secreto-api"}`)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusOK, code, "request %d", i)
	}
	assert.EqualValues(t, n, e.count(t, &models.LocationHistory{}))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

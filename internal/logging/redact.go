package logging

import (
	"net/url"
)

var secretParams = []string{"tkn", "token"}

// redactQuery masks API tokens that devices send as query parameters.
func redactQuery(raw string) string {
	q, err := url.ParseQuery(raw)
	if err != nil {
		return "<unparsable>"
	}
	changed := false
	for _, p := range secretParams {
		if _, ok := q[p]; ok {
			q.Set(p, "***")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	return q.Encode()
}

package lapse

import (
	"net/http"

	json "github.com/goccy/go-json"
)

// EnvelopesHandler returns an [http.Handler] that reports the envelopes
// registered with reg as JSON, in the format accepted by [LoadConfig].
func EnvelopesHandler(reg *Registry) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		body := struct {
			Envelopes map[string]Envelope `json:"envelopes"`
		}{
			Envelopes: reg.Snapshot(),
		}

		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusOK)

		//nolint:errcheck // best-effort JSON encoding to HTTP response
		_ = json.NewEncoder(writer).Encode(body)
	})
}

package capabilities

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/observability"
)

const route = "/api/capabilities"

// NotFound is the body returned when the requested feature type is absent.
type NotFound struct {
	Status bool `json:"status" yaml:"status"`
}

// Handler answers with the metadata of ?typename= (or defaultType), or with
// {"status":false} when the service does not list it.
func Handler(logger *slog.Logger, l Lookuper, defaultType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
		}()

		typeName := strings.TrimSpace(r.URL.Query().Get("typename"))
		if typeName == "" {
			typeName = defaultType
		}

		ft, err := l.Lookup(r.Context(), typeName)
		switch {
		case errors.Is(err, ErrNotFound):
			writeJSON(sw, http.StatusOK, NotFound{Status: false})
		case err != nil:
			logger.WarnContext(r.Context(), "capabilities lookup failed", "typename", typeName, "err", err)
			http.Error(sw, "capabilities unavailable", http.StatusBadGateway)
		default:
			writeJSON(sw, http.StatusOK, ft)
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

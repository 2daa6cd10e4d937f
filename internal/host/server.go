package host

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	json "github.com/nikkolasg/hexjson"

	"sealedstate/internal/bridge"
	"sealedstate/internal/log"
	"sealedstate/internal/services/sync"
)

// StatusHeader carries the bridge status of a call response.
const StatusHeader = "Bridge-Status"

// maxBody bounds call request bodies.
const maxBody = 8 << 20

// Caller is the bridge of the served enclave.
type Caller interface {
	Call(ctx context.Context, op string, request []byte) ([]byte, bridge.Status)
}

// Syncer ingests new ledger entries.
type Syncer interface {
	Run(ctx context.Context) (*sync.Result, error)
}

type errorResponse struct {
	Error  string       `json:"error"`
	Result *sync.Result `json:"result,omitempty"`
}

// Handler serves c and s:
//
//	POST /call/{op}  bridge request body, bridge response body
//	POST /sync       ingest new ledger entries, returns the sync result
//	GET  /healthz
func Handler(c Caller, s Syncer, l log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/call/{op}", func(w http.ResponseWriter, req *http.Request) {
		defer req.Body.Close()
		body, err := io.ReadAll(io.LimitReader(req.Body, maxBody))
		if err != nil {
			writeJSON(w, l, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		op := chi.URLParam(req, "op")
		out, status := c.Call(req.Context(), op, body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(StatusHeader, status.String())
		code := http.StatusOK
		if status != bridge.StatusOK {
			code = http.StatusUnprocessableEntity
		}
		w.WriteHeader(code)
		if _, err := w.Write(out); err != nil {
			l.Warnw("writing call response", "op", op, "err", err)
		}
	})
	r.Post("/sync", func(w http.ResponseWriter, req *http.Request) {
		res, err := s.Run(req.Context())
		if err != nil {
			l.Warnw("sync failed", "err", err)
			writeJSON(w, l, http.StatusInternalServerError, errorResponse{Error: err.Error(), Result: res})
			return
		}
		writeJSON(w, l, http.StatusOK, res)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func writeJSON(w http.ResponseWriter, l log.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l.Warnw("writing response", "err", err)
	}
}

package ledger

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	json "github.com/nikkolasg/hexjson"

	"sealedstate/internal/domain"
	"sealedstate/internal/log"
)

type submitResponse struct {
	Seq uint64 `json:"seq"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves l over HTTP:
//
//	POST /join         JoinGroupTx
//	POST /handshake    HandshakeTx
//	POST /init         InitStateTx
//	POST /instruction  InstructionTx
//	GET  /entries?from=N&limit=M
func Handler(l domain.Ledger, lg log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/join", submit(lg, func(req *http.Request, tx domain.JoinGroupTx) (uint64, error) {
		return l.SubmitJoin(req.Context(), tx)
	}))
	r.Post("/handshake", submit(lg, func(req *http.Request, tx domain.HandshakeTx) (uint64, error) {
		return l.SubmitHandshake(req.Context(), tx)
	}))
	r.Post("/init", submit(lg, func(req *http.Request, tx domain.InitStateTx) (uint64, error) {
		return l.SubmitInitState(req.Context(), tx)
	}))
	r.Post("/instruction", submit(lg, func(req *http.Request, tx domain.InstructionTx) (uint64, error) {
		return l.SubmitInstruction(req.Context(), tx)
	}))
	r.Get("/entries", func(w http.ResponseWriter, req *http.Request) {
		from, err := queryUint(req, "from")
		if err != nil {
			writeError(w, lg, http.StatusBadRequest, err)
			return
		}
		limit, err := queryUint(req, "limit")
		if err != nil {
			writeError(w, lg, http.StatusBadRequest, err)
			return
		}
		entries, err := l.Entries(req.Context(), from, int(limit))
		if err != nil {
			writeError(w, lg, statusFor(err), err)
			return
		}
		if entries == nil {
			entries = []domain.Entry{}
		}
		writeJSON(w, lg, http.StatusOK, entries)
	})
	return r
}

func submit[T any](lg log.Logger, fn func(*http.Request, T) (uint64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer req.Body.Close()
		var tx T
		if err := json.NewDecoder(req.Body).Decode(&tx); err != nil {
			writeError(w, lg, http.StatusBadRequest, err)
			return
		}
		seq, err := fn(req, tx)
		if err != nil {
			writeError(w, lg, statusFor(err), err)
			return
		}
		writeJSON(w, lg, http.StatusOK, submitResponse{Seq: seq})
	}
}

func queryUint(req *http.Request, name string) (uint64, error) {
	v := req.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrStaleLockParam):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCrypto):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrCodec):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, lg log.Logger, status int, err error) {
	lg.Debugw("request failed", "status", status, "err", err)
	writeJSON(w, lg, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, lg log.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		lg.Warnw("writing response", "err", err)
	}
}

package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	clock "github.com/jonboulle/clockwork"

	"sealedstate/internal/bridge"
	"sealedstate/internal/domain"
	"sealedstate/internal/host"
	"sealedstate/internal/log"
	"sealedstate/internal/metrics"
	"sealedstate/internal/runtime/token"
	"sealedstate/internal/services/enclave"
	"sealedstate/internal/services/sync"
)

// App is one running enclave with its bridge and ledger sync.
type App struct {
	Enclave *enclave.Context[token.Balance]
	Bridge  *bridge.Bridge[token.Balance]
	Sync    *sync.Service
	Ledger  domain.Ledger
	// Clock drives the periodic ledger sync of Serve.
	Clock clock.Clock

	log log.Logger
}

// New assembles an App from its parts. The sync cursor starts at the
// beginning of the ledger, since group state lives only in memory.
func New(c *enclave.Context[token.Balance], ledger domain.Ledger, page int, l log.Logger) *App {
	return &App{
		Enclave: c,
		Bridge:  bridge.New(c, l),
		Sync:    sync.New(ledger, c, 0, page, l),
		Ledger:  ledger,
		Clock:   clock.NewRealClock(),
		log:     l,
	}
}

// NewApp loads the enclave identity and key package with passphrase and
// builds the App over the configured state store.
func (w *Wire) NewApp(ctx context.Context, passphrase string) (*App, error) {
	id, err := w.Identity.LoadIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	cfg := enclave.Config{MaxRoster: w.Config.MaxRoster}
	kp, ok, err := w.KeyPackage.LoadKeyPackage(passphrase)
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.KeyPackage = &kp
	}
	st, err := w.StateStore(ctx, passphrase)
	if err != nil {
		return nil, err
	}
	c := enclave.New(id, st, token.NewRuntime(), cfg, w.Log)
	return New(c, w.Ledger, w.Config.SyncPage, w.Log), nil
}

// Serve runs the host HTTP server on ln and syncs with the ledger once on
// start and then every period until ctx is done.
func (a *App) Serve(ctx context.Context, ln net.Listener, period time.Duration) error {
	srv := &http.Server{
		Handler:           host.Handler(a.Bridge, a.Sync, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	a.log.Infow("enclave host listening", "addr", ln.Addr().String())

	a.syncOnce(ctx)
	ticker := a.Clock.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ticker.Chan():
			a.syncOnce(ctx)
		}
	}
}

func (a *App) syncOnce(ctx context.Context) {
	res, err := a.Sync.Run(ctx)
	if err != nil {
		a.log.Errorw("ledger sync stopped", "cursor", a.Sync.Cursor(), "err", err)
		return
	}
	if res.Processed > 0 {
		a.log.Debugw("ledger synced", "processed", res.Processed, "cursor", res.Cursor, "failed", len(res.Failed))
	}
	for _, n := range res.Notifications {
		a.log.Infow("state updated", "address", n.Address, "lock_param", n.LockParam)
	}
}

// StartMetrics serves /metrics on addr when it is set.
func (a *App) StartMetrics(addr string) net.Listener {
	if addr == "" {
		return nil
	}
	return metrics.Start(addr, a.log)
}

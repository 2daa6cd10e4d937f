// Package metrics holds the prometheus collectors of the enclave host and
// the listener that serves them.
package metrics

import (
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sealedstate/internal/log"
)

var (
	// Registry holds every collector of this package plus the go and process
	// collectors.
	Registry = prometheus.NewRegistry()

	// CiphertextsIngested counts ledger ciphertexts by outcome.
	CiphertextsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ciphertexts_ingested",
		Help: "Number of ledger ciphertexts ingested, by result",
	}, []string{"result"})
	// HandshakesProcessed counts ledger handshakes by op and outcome.
	HandshakesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "handshakes_processed",
		Help: "Number of handshakes processed, by op and result",
	}, []string{"op", "result"})
	// Ratchets counts key chain ratchet steps.
	Ratchets = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keychain_ratchets",
		Help: "Number of application key chain ratchet steps",
	})
	// RosterSize is the number of leaf slots handed out in the group.
	RosterSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roster_size",
		Help: "Number of roster indices handed out",
	})
	// Joined is 1 while this enclave holds the group secret.
	Joined = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "group_joined",
		Help: "1 if this enclave is a group member",
	})
	// RPCCalls counts bridge calls by op and status.
	RPCCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rpc_calls",
		Help: "Number of bridge calls, by op and status",
	}, []string{"op", "status"})
	// LedgerCursor is the next ledger sequence number to ingest.
	LedgerCursor = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_cursor",
		Help: "Next ledger sequence number to ingest",
	})

	bindOnce sync.Once
)

func bindMetrics() {
	bindOnce.Do(func() {
		Registry.MustRegister(prometheus.NewGoCollector())
		Registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
		Registry.MustRegister(
			CiphertextsIngested,
			HandshakesProcessed,
			Ratchets,
			RosterSize,
			Joined,
			RPCCalls,
			LedgerCursor,
		)
	})
}

// Handler serves the registry in the prometheus exposition format.
func Handler() http.Handler {
	bindMetrics()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Start serves /metrics on bind in the background. It returns nil when the
// address cannot be bound.
func Start(bind string, l log.Logger) net.Listener {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		l.Warnw("metrics listen failed", "err", err)
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	s := http.Server{Handler: mux}
	go func() {
		l.Debugw("metrics listen finished", "err", s.Serve(ln))
	}()
	l.Infow("metrics listener started", "at", ln.Addr().String())
	return ln
}

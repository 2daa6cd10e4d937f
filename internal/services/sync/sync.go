// Package sync feeds finalized ledger entries to an enclave in sequence order.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	"sealedstate/internal/domain"
	"sealedstate/internal/log"
	"sealedstate/internal/metrics"
	"sealedstate/internal/protocol/treekem"
)

// Failure is a ledger entry the enclave could not apply and skipped.
type Failure struct {
	Seq  uint64           `json:"seq"`
	Kind domain.EntryKind `json:"kind"`
	Err  string           `json:"err"`
}

// Result summarises one Run.
type Result struct {
	Processed     int                    `json:"processed"`
	Notifications []*domain.Notification `json:"notifications,omitempty"`
	Failed        []Failure              `json:"failed,omitempty"`
	Cursor        uint64                 `json:"cursor"`
}

// Service tracks how far into the ledger an enclave has ingested.
//
// A ciphertext entry that fails to apply is still consumed: the sender's
// chain has ratcheted and every replica fails it the same way. A handshake
// rejected on public data is skipped for the same reason. Any other handshake
// failure stops the run with the cursor on that entry, since continuing would
// leave this enclave on a different group secret than the rest.
type Service struct {
	mu     gosync.Mutex
	ledger domain.Ledger
	in     domain.Ingestor
	cursor uint64
	page   int
	log    log.Logger
}

// New returns a sync service reading ledger from sequence number from, page
// entries at a time. A page of zero uses the ledger's default.
func New(ledger domain.Ledger, in domain.Ingestor, from uint64, page int, l log.Logger) *Service {
	metrics.LedgerCursor.Set(float64(from))
	return &Service{ledger: ledger, in: in, cursor: from, page: page, log: l.Named("sync")}
}

// Cursor returns the next sequence number to ingest.
func (s *Service) Cursor() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Run ingests entries until the ledger has no more or ctx is done. The
// result holds what was ingested even when an error is returned.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &Result{Cursor: s.cursor}
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		entries, err := s.ledger.Entries(ctx, s.cursor, s.page)
		if err != nil {
			return res, fmt.Errorf("fetching entries from %d: %w", s.cursor, err)
		}
		if len(entries) == 0 {
			return res, nil
		}
		for _, e := range entries {
			if e.Seq != s.cursor {
				return res, fmt.Errorf("%w: ledger returned entry %d, want %d", domain.ErrCodec, e.Seq, s.cursor)
			}
			if err := s.apply(ctx, e, res); err != nil {
				return res, err
			}
			s.advance(res)
		}
	}
}

func (s *Service) apply(ctx context.Context, e domain.Entry, res *Result) error {
	switch e.Kind {
	case domain.EntryCiphertext:
		n, err := s.in.InsertCiphertext(ctx, e.Payload)
		if err != nil {
			s.fail(e, err, res)
			return nil
		}
		if n != nil {
			res.Notifications = append(res.Notifications, n)
		}
	case domain.EntryHandshake:
		err := s.in.InsertHandshake(ctx, e.Payload)
		switch {
		case err == nil:
		case errors.Is(err, treekem.ErrRejected), errors.Is(err, domain.ErrCodec):
			s.fail(e, err, res)
		default:
			s.log.Errorw("handshake failed, stopping", "seq", e.Seq, "err", err)
			return fmt.Errorf("handshake at %d: %w", e.Seq, err)
		}
	default:
		s.fail(e, fmt.Errorf("%w: unknown entry kind %d", domain.ErrCodec, e.Kind), res)
	}
	return nil
}

func (s *Service) fail(e domain.Entry, err error, res *Result) {
	s.log.Warnw("skipping ledger entry", "seq", e.Seq, "kind", e.Kind, "err", err)
	res.Failed = append(res.Failed, Failure{Seq: e.Seq, Kind: e.Kind, Err: err.Error()})
}

func (s *Service) advance(res *Result) {
	s.cursor++
	res.Processed++
	res.Cursor = s.cursor
	metrics.LedgerCursor.Set(float64(s.cursor))
}

package enclave

import (
	"context"
	"errors"
	"sync"

	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
	"sealedstate/internal/log"
	"sealedstate/internal/metrics"
	"sealedstate/internal/protocol/groupkey"
	"sealedstate/internal/protocol/keychain"
	"sealedstate/internal/protocol/treekem"
	"sealedstate/internal/runtime"
	statesvc "sealedstate/internal/services/state"
	userstate "sealedstate/internal/state"
)

// Config tunes a Context.
type Config struct {
	// MaxRoster bounds the roster; zero means treekem.DefaultMaxRoster.
	MaxRoster uint32
	// KeyPackage lets another member add this enclave. Nil when the enclave
	// joins by itself.
	KeyPackage *domain.KeyPackage
}

// Context is the state of one enclave.
type Context[S userstate.State[S]] struct {
	mu     sync.RWMutex
	group  *groupkey.GroupKey
	states *statesvc.Service[S]
	id     domain.Identity
	log    log.Logger

	notifyMu sync.Mutex
	watched  map[domain.UserAddress]struct{}
}

// New returns the context of an enclave that has not joined a group yet. id
// signs every transaction it builds.
func New[S userstate.State[S]](
	id domain.Identity,
	store domain.KeyedStore,
	rt *runtime.Runtime[S],
	cfg Config,
	l log.Logger,
) *Context[S] {
	l = l.Named("enclave").With("signer", crypto.Fingerprint(id.EdPub[:]))
	return &Context[S]{
		group:   groupkey.New(cfg.MaxRoster, cfg.KeyPackage),
		states:  statesvc.New(store, rt, l),
		id:      id,
		log:     l,
		watched: make(map[domain.UserAddress]struct{}),
	}
}

// Status is a snapshot of the enclave's group membership.
type Status struct {
	Joined      bool               `json:"joined"`
	RosterIndex domain.RosterIndex `json:"roster_index"`
	RosterSize  uint32             `json:"roster_size"`
}

// Status returns the current membership.
func (c *Context[S]) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, joined := c.group.RosterIndex()
	return Status{Joined: joined, RosterIndex: idx, RosterSize: c.group.RosterSize()}
}

// Signer returns the public key transactions are signed with.
func (c *Context[S]) Signer() domain.Ed25519Public { return c.id.EdPub }

// Runtime returns the transition registry.
func (c *Context[S]) Runtime() *runtime.Runtime[S] { return c.states.Runtime() }

// UseKeyPackage replaces the key package an Add for this enclave must name.
func (c *Context[S]) UseKeyPackage(kp *domain.KeyPackage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.group.SetKeyPackage(kp)
}

// InsertCiphertext applies one finalized ciphertext: the state it carries
// becomes the current state of its address. The sender's chain is ratcheted
// whenever the header parses, whether or not the rest succeeds, so every
// member stays on the same generation. It returns a notification when the
// address was registered with RegisterNotification.
func (c *Context[S]) InsertCiphertext(ctx context.Context, ct []byte) (*domain.Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pt, hdr, err := c.group.Decrypt(ct)
	if errors.Is(err, keychain.ErrShortCiphertext) {
		metrics.CiphertextsIngested.WithLabelValues("codec").Inc()
		return nil, err
	}
	defer c.ratchet(hdr.Sender)

	if err != nil {
		if !c.group.Joined() && errors.Is(err, keychain.ErrNoKey) {
			c.log.Debugw("skipping ciphertext before join", "sender", hdr.Sender, "generation", hdr.Generation)
			metrics.CiphertextsIngested.WithLabelValues("skipped").Inc()
			return nil, nil
		}
		c.log.Warnw("ciphertext does not decrypt", "sender", hdr.Sender, "generation", hdr.Generation, "err", err)
		metrics.CiphertextsIngested.WithLabelValues("crypto").Inc()
		return nil, err
	}

	cur, err := userstate.DecodeCurrent[S](pt)
	if err != nil {
		metrics.CiphertextsIngested.WithLabelValues("codec").Inc()
		return nil, err
	}
	if err := c.states.Save(ctx, cur); err != nil {
		metrics.CiphertextsIngested.WithLabelValues("io").Inc()
		return nil, err
	}
	metrics.CiphertextsIngested.WithLabelValues("ok").Inc()

	if !c.isWatched(cur.Address()) {
		return nil, nil
	}
	return &domain.Notification{
		Address:   cur.Address(),
		State:     cur.Inner().Marshal(),
		LockParam: cur.LockParam(),
	}, nil
}

func (c *Context[S]) ratchet(sender domain.RosterIndex) {
	if err := c.group.Ratchet(sender); err != nil {
		c.log.Debugw("ratchet skipped", "sender", sender, "err", err)
		return
	}
	metrics.Ratchets.Inc()
}

// InsertHandshake applies one finalized handshake. On error the group is
// unchanged.
func (c *Context[S]) InsertHandshake(_ context.Context, b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasJoined := c.group.Joined()
	h, err := c.group.ProcessHandshake(b)
	if err != nil {
		op := "unknown"
		if hh, perr := treekem.UnmarshalHandshake(b); perr == nil {
			op = hh.Op.String()
		}
		metrics.HandshakesProcessed.WithLabelValues(op, "error").Inc()
		c.log.Warnw("handshake rejected", "op", op, "err", err)
		return err
	}
	metrics.HandshakesProcessed.WithLabelValues(h.Op.String(), "ok").Inc()
	c.updateGauges()

	switch joined := c.group.Joined(); {
	case joined && !wasJoined:
		idx, _ := c.group.RosterIndex()
		c.log.Infow("joined group", "roster_index", idx, "roster_size", c.group.RosterSize())
	case !joined && wasJoined:
		c.log.Infow("removed from group", "by", h.Sender)
	default:
		c.log.Debugw("handshake applied", "op", h.Op, "sender", h.Sender, "target", h.Target)
	}
	return nil
}

func (c *Context[S]) updateGauges() {
	metrics.RosterSize.Set(float64(c.group.RosterSize()))
	if c.group.Joined() {
		metrics.Joined.Set(1)
	} else {
		metrics.Joined.Set(0)
	}
}

// JoinGroup builds the self-add transaction of this enclave. It joins once the
// handshake comes back from the ledger.
func (c *Context[S]) JoinGroup(_ context.Context) (domain.JoinGroupTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.group.CreateJoin()
	if err != nil {
		return domain.JoinGroupTx{}, err
	}
	tx := domain.JoinGroupTx{Handshake: b, Signer: c.id.EdPub}
	tx.EnclaveSig = crypto.SignEd25519(c.id.EdPriv, tx.SigningBytes())
	return tx, nil
}

// CreateHandshake builds an Update rotating this member's path secrets.
func (c *Context[S]) CreateHandshake(_ context.Context) (domain.HandshakeTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handshakeTx(c.group.CreateHandshake())
}

// AddMember builds an Add of the enclave holding key package kp.
func (c *Context[S]) AddMember(_ context.Context, kp domain.X25519Public) (domain.HandshakeTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.Infow("adding member", "key_package", crypto.FingerprintX25519(kp), "roster_size", c.group.RosterSize())
	return c.handshakeTx(c.group.CreateAdd(kp))
}

// RemoveMember builds a Remove of the member at target.
func (c *Context[S]) RemoveMember(_ context.Context, target domain.RosterIndex) (domain.HandshakeTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handshakeTx(c.group.CreateRemove(target))
}

func (c *Context[S]) handshakeTx(b []byte, err error) (domain.HandshakeTx, error) {
	if err != nil {
		return domain.HandshakeTx{}, err
	}
	tx := domain.HandshakeTx{Handshake: b, Signer: c.id.EdPub}
	tx.EnclaveSig = crypto.SignEd25519(c.id.EdPriv, tx.SigningBytes())
	return tx, nil
}

// GetState returns the current state of the address ar proves control of.
func (c *Context[S]) GetState(ctx context.Context, ar domain.AccessRight) (S, error) {
	var zero S
	addr, err := crypto.VerifyAccessRight(ar)
	if err != nil {
		return zero, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	cur, err := c.states.Current(ctx, addr)
	if err != nil {
		return zero, err
	}
	return cur.Inner(), nil
}

// InitState builds the transaction publishing the first state of the
// address ar proves control of. An address this enclave already holds a
// state for cannot be initialised again.
func (c *Context[S]) InitState(ctx context.Context, ar domain.AccessRight, s S) (domain.InitStateTx, error) {
	addr, err := crypto.VerifyAccessRight(ar)
	if err != nil {
		return domain.InitStateTx{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	in, err := c.states.Init(ctx, addr, s, c.group)
	if err != nil {
		return domain.InitStateTx{}, err
	}
	tx := domain.InitStateTx{Ciphertext: in.Ciphertext, LockParam: in.LockParam, Prev: in.Prev, Signer: c.id.EdPub}
	tx.EnclaveSig = crypto.SignEd25519(c.id.EdPriv, tx.SigningBytes())
	return tx, nil
}

// Instruction runs kind for the caller of ar against target and builds the
// transaction carrying the sealed next states and the lock parameters they
// were computed from. Nothing is stored: the new states become current when
// the ledger hands the ciphertexts back.
func (c *Context[S]) Instruction(
	ctx context.Context,
	ar domain.AccessRight,
	target domain.UserAddress,
	kind runtime.CallKind,
	params S,
) (domain.InstructionTx, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, err := c.states.FromAccessRight(ctx, ar, target)
	if err != nil {
		return domain.InstructionTx{}, err
	}
	tr, err := c.states.Apply(p, kind, params, c.group)
	if err != nil {
		return domain.InstructionTx{}, err
	}
	tx := domain.InstructionTx{
		CallKind:    uint32(kind),
		Ciphertexts: tr.Ciphertexts,
		LockParams:  tr.LockParams,
		Signer:      c.id.EdPub,
	}
	tx.EnclaveSig = crypto.SignEd25519(c.id.EdPriv, tx.SigningBytes())
	return tx, nil
}

// RevealLockParams returns the lock parameters an instruction by the caller
// of ar against target would reveal right now.
func (c *Context[S]) RevealLockParams(ctx context.Context, ar domain.AccessRight, target domain.UserAddress) ([]domain.LockParam, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, err := c.states.FromAccessRight(ctx, ar, target)
	if err != nil {
		return nil, err
	}
	return p.RevealLockParams(), nil
}

// RegisterNotification asks for the new state of the caller's address every
// time a ciphertext for it is ingested.
func (c *Context[S]) RegisterNotification(ar domain.AccessRight) (domain.UserAddress, error) {
	addr, err := crypto.VerifyAccessRight(ar)
	if err != nil {
		return domain.UserAddress{}, err
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.watched[addr] = struct{}{}
	return addr, nil
}

func (c *Context[S]) isWatched(addr domain.UserAddress) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	_, ok := c.watched[addr]
	return ok
}

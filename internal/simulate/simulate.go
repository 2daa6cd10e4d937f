// Package simulate runs a committee of enclaves in one process against a
// memory ledger and checks that they agree.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"io"

	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
	"sealedstate/internal/ledger"
	"sealedstate/internal/log"
	"sealedstate/internal/protocol/keychain"
	"sealedstate/internal/runtime/token"
	"sealedstate/internal/services/enclave"
	"sealedstate/internal/services/sync"
	"sealedstate/internal/store"
)

type member struct {
	enclave *enclave.Context[token.Balance]
	sync    *sync.Service
}

type user struct {
	ar   domain.AccessRight
	addr domain.UserAddress
}

// Committee is a set of enclaves sharing one memory ledger.
type Committee struct {
	Ledger  *ledger.Memory
	members []*member
	out     io.Writer
	log     log.Logger
}

// NewCommittee returns an empty committee reporting to out.
func NewCommittee(out io.Writer, l log.Logger) *Committee {
	return &Committee{Ledger: ledger.NewMemory(l), out: out, log: l}
}

// Size returns the number of enclaves, joined or not.
func (c *Committee) Size() int { return len(c.members) }

// Spawn starts an enclave that replays the ledger from the beginning. kp may
// be nil.
func (c *Committee) Spawn(kp *domain.KeyPackage) (*enclave.Context[token.Balance], error) {
	priv, pub, err := crypto.GenerateEd25519()
	if err != nil {
		return nil, err
	}
	l := c.log.With("member", len(c.members))
	e := enclave.New(domain.Identity{EdPub: pub, EdPriv: priv}, store.NewMemory(), token.NewRuntime(),
		enclave.Config{KeyPackage: kp}, l)
	c.members = append(c.members, &member{enclave: e, sync: sync.New(c.Ledger, e, 0, 0, l)})
	return e, nil
}

// SyncAll brings every enclave up to the head of the ledger. A skipped entry
// is an error here: a healthy committee produces none.
func (c *Committee) SyncAll(ctx context.Context) error {
	for i, m := range c.members {
		res, err := m.sync.Run(ctx)
		if err != nil {
			return fmt.Errorf("member %d: %w", i, err)
		}
		if len(res.Failed) > 0 {
			return fmt.Errorf("member %d skipped entry %d: %s", i, res.Failed[0].Seq, res.Failed[0].Err)
		}
	}
	return nil
}

// Join self-adds a new enclave and syncs the committee.
func (c *Committee) Join(ctx context.Context) (*enclave.Context[token.Balance], error) {
	e, err := c.Spawn(nil)
	if err != nil {
		return nil, err
	}
	if err := c.SyncAll(ctx); err != nil {
		return nil, err
	}
	tx, err := e.JoinGroup(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := c.Ledger.SubmitJoin(ctx, tx); err != nil {
		return nil, err
	}
	return e, c.SyncAll(ctx)
}

// Member returns enclave i.
func (c *Committee) Member(i int) *enclave.Context[token.Balance] { return c.members[i].enclave }

func newUser() (user, error) {
	priv, pub, err := crypto.GenerateEd25519()
	if err != nil {
		return user{}, err
	}
	ar, err := crypto.NewAccessRight(priv, pub)
	if err != nil {
		return user{}, err
	}
	return user{ar: ar, addr: crypto.AddressFromPublic(pub)}, nil
}

func (c *Committee) mint(ctx context.Context, e *enclave.Context[token.Balance], u user, v token.Balance) (domain.InstructionTx, error) {
	tx, err := e.Instruction(ctx, u.ar, u.addr, token.CallMint, v)
	if err != nil {
		return tx, err
	}
	if _, err := c.Ledger.SubmitInstruction(ctx, tx); err != nil {
		return tx, err
	}
	return tx, c.SyncAll(ctx)
}

// expectBalance checks that every joined member reads want for u.
func (c *Committee) expectBalance(ctx context.Context, u user, want token.Balance) error {
	for i, m := range c.members {
		if !m.enclave.Status().Joined {
			continue
		}
		got, err := m.enclave.GetState(ctx, u.ar)
		if err != nil {
			return fmt.Errorf("member %d: %w", i, err)
		}
		if got != want {
			return fmt.Errorf("member %d reads %s, want %s", i, got, want)
		}
	}
	return nil
}

func (c *Committee) report(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// MemberAdd builds a roster of three, lets member 2 add a fourth enclave by
// key package and checks that everyone reads what the newcomer writes.
func (c *Committee) MemberAdd(ctx context.Context) error {
	for c.Size() < 3 {
		if _, err := c.Join(ctx); err != nil {
			return err
		}
	}
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	newcomer, err := c.Spawn(&domain.KeyPackage{Pub: pub, Priv: priv})
	if err != nil {
		return err
	}
	if err := c.SyncAll(ctx); err != nil {
		return err
	}
	tx, err := c.Member(2).AddMember(ctx, pub)
	if err != nil {
		return err
	}
	if _, err := c.Ledger.SubmitHandshake(ctx, tx); err != nil {
		return err
	}
	if err := c.SyncAll(ctx); err != nil {
		return err
	}
	st := newcomer.Status()
	if !st.Joined {
		return errors.New("newcomer did not join")
	}
	c.report("member add: handshake %s, newcomer at roster index %d of %d",
		crypto.B64(tx.Handshake[:min(12, len(tx.Handshake))]), st.RosterIndex, st.RosterSize)

	u, err := newUser()
	if err != nil {
		return err
	}
	if _, err := c.mint(ctx, newcomer, u, 12); err != nil {
		return err
	}
	if err := c.expectBalance(ctx, u, 12); err != nil {
		return err
	}
	c.report("member add: all %d members read the newcomer's write", c.Size())
	return nil
}

// ForwardSecrecy advances member 0's chain to generation 3, makes the
// committee ratchet past it and checks that the generation-3 ciphertext no
// longer opens.
func (c *Committee) ForwardSecrecy(ctx context.Context) error {
	for c.Size() < 2 {
		if _, err := c.Join(ctx); err != nil {
			return err
		}
	}
	sender := c.Member(0)
	u, err := newUser()
	if err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		if _, err := c.mint(ctx, sender, u, 1); err != nil {
			return err
		}
	}

	tx, err := sender.Instruction(ctx, u.ar, u.addr, token.CallMint, 1)
	if err != nil {
		return err
	}
	ct := tx.Ciphertexts[0]
	hdr, err := keychain.ParseHeader(ct)
	if err != nil {
		return err
	}

	// A corrupted copy still moves every member to the next generation, so
	// the genuine ciphertext arrives one generation too late.
	bad := append([]byte(nil), ct...)
	bad[len(bad)-1] ^= 1
	for i := range c.members {
		if _, err := c.Member(i).InsertCiphertext(ctx, bad); !errors.Is(err, keychain.ErrDecrypt) {
			return fmt.Errorf("member %d, corrupted ciphertext: got %v", i, err)
		}
	}
	for i := range c.members {
		_, err = c.Member(i).InsertCiphertext(ctx, ct)
		if !errors.Is(err, keychain.ErrForwardSecrecy) {
			return fmt.Errorf("member %d, generation %d after ratchet: got %v", i, hdr.Generation, err)
		}
	}
	c.report("forward secrecy: generation %d rejected by all %d members after ratchet", hdr.Generation, c.Size())
	return nil
}

// StaleLock commits a transition and checks that replaying it with the
// consumed lock parameter is rejected.
func (c *Committee) StaleLock(ctx context.Context) error {
	if c.Size() == 0 {
		if _, err := c.Join(ctx); err != nil {
			return err
		}
	}
	e := c.Member(0)
	u, err := newUser()
	if err != nil {
		return err
	}
	tx, err := c.mint(ctx, e, u, 5)
	if err != nil {
		return err
	}
	next, err := e.RevealLockParams(ctx, u.ar, u.addr)
	if err != nil {
		return err
	}
	_, err = c.Ledger.SubmitInstruction(ctx, tx)
	if !errors.Is(err, domain.ErrStaleLockParam) {
		return fmt.Errorf("resubmission with %s: got %v", tx.LockParams[0], err)
	}
	c.report("stale lock: %s -> %s, resubmission rejected", tx.LockParams[0], next[0])
	return nil
}

// Run executes every scenario on a fresh committee.
func Run(ctx context.Context, out io.Writer, l log.Logger) error {
	c := NewCommittee(out, l)
	for _, step := range []func(context.Context) error{c.MemberAdd, c.ForwardSecrecy, c.StaleLock} {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

package bridge_test

import (
	"context"
	"fmt"
	"testing"

	json "github.com/nikkolasg/hexjson"
	"github.com/stretchr/testify/require"

	"sealedstate/internal/bridge"
	"sealedstate/internal/crypto"
	"sealedstate/internal/domain"
	"sealedstate/internal/ledger"
	"sealedstate/internal/log/logtest"
	"sealedstate/internal/runtime/token"
	"sealedstate/internal/services/enclave"
	"sealedstate/internal/store"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	bridge *bridge.Bridge[token.Balance]
	ledger *ledger.Memory
	cursor uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	priv, pub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	c := enclave.New(domain.Identity{EdPub: pub, EdPriv: priv}, store.NewMemory(), token.NewRuntime(),
		enclave.Config{}, logtest.New(t))
	return &fixture{
		t:      t,
		ctx:    context.Background(),
		bridge: bridge.New(c, logtest.New(t)),
		ledger: ledger.NewMemory(logtest.New(t)),
	}
}

func (f *fixture) call(op string, req, resp any) bridge.Status {
	f.t.Helper()
	var in []byte
	if req != nil {
		var err error
		in, err = json.Marshal(req)
		require.NoError(f.t, err)
	} else {
		in = []byte("{}")
	}
	out, status := f.bridge.Call(f.ctx, op, in)
	if status == bridge.StatusOK && resp != nil {
		require.NoError(f.t, json.Unmarshal(out, resp))
	}
	if status != bridge.StatusOK {
		var e bridge.ErrorResponse
		require.NoError(f.t, json.Unmarshal(out, &e))
		require.NotEmpty(f.t, e.Error)
	}
	return status
}

// pump feeds new ledger entries back through the bridge.
func (f *fixture) pump() []*domain.Notification {
	f.t.Helper()
	entries, err := f.ledger.Entries(f.ctx, f.cursor, 0)
	require.NoError(f.t, err)
	var notes []*domain.Notification
	for _, e := range entries {
		switch e.Kind {
		case domain.EntryHandshake:
			require.Equal(f.t, bridge.StatusOK, f.call(bridge.OpInsertHandshake, bridge.HandshakeRequest{Handshake: e.Payload}, nil))
		case domain.EntryCiphertext:
			var resp bridge.CiphertextResponse
			require.Equal(f.t, bridge.StatusOK, f.call(bridge.OpInsertCiphertext, bridge.CiphertextRequest{Ciphertext: e.Payload}, &resp))
			if resp.Notification != nil {
				notes = append(notes, resp.Notification)
			}
		}
		f.cursor = e.Seq + 1
	}
	return notes
}

func (f *fixture) join() {
	f.t.Helper()
	var tx domain.JoinGroupTx
	require.Equal(f.t, bridge.StatusOK, f.call(bridge.OpJoinGroup, nil, &tx))
	_, err := f.ledger.SubmitJoin(f.ctx, tx)
	require.NoError(f.t, err)
	f.pump()
}

func accessRight(t *testing.T) (domain.AccessRight, domain.UserAddress) {
	t.Helper()
	priv, pub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	ar, err := crypto.NewAccessRight(priv, pub)
	require.NoError(t, err)
	return ar, crypto.AddressFromPublic(pub)
}

func TestBridgeStateLifecycle(t *testing.T) {
	f := newFixture(t)
	f.join()

	var st enclave.Status
	require.Equal(t, bridge.StatusOK, f.call(bridge.OpStatus, nil, &st))
	require.True(t, st.Joined)

	ar, addr := accessRight(t)
	var reg bridge.RegisterResponse
	require.Equal(t, bridge.StatusOK, f.call(bridge.OpRegisterNotification, bridge.AccessRequest{AccessRight: ar}, &reg))
	require.Equal(t, addr, reg.Address)

	var init domain.InitStateTx
	require.Equal(t, bridge.StatusOK, f.call(bridge.OpInitState, bridge.InitStateRequest{
		AccessRight: ar,
		State:       token.Balance(50).Marshal(),
	}, &init))
	_, err := f.ledger.SubmitInitState(f.ctx, init)
	require.NoError(t, err)
	notes := f.pump()
	require.Len(t, notes, 1)

	_, bob := accessRight(t)
	var tx domain.InstructionTx
	require.Equal(t, bridge.StatusOK, f.call(bridge.OpInstruction, bridge.InstructionRequest{
		AccessRight: ar,
		Target:      bob,
		CallKind:    uint32(token.CallTransfer),
		Params:      token.Balance(20).Marshal(),
	}, &tx))
	require.Len(t, tx.Ciphertexts, 2)
	_, err = f.ledger.SubmitInstruction(f.ctx, tx)
	require.NoError(t, err)
	f.pump()

	var resp bridge.StateResponse
	require.Equal(t, bridge.StatusOK, f.call(bridge.OpGetState, bridge.AccessRequest{AccessRight: ar}, &resp))
	require.Equal(t, token.Balance(30).Marshal(), resp.State)
}

func TestBridgeStatuses(t *testing.T) {
	f := newFixture(t)
	ar, addr := accessRight(t)
	bad := ar
	bad.Sig = append([]byte(nil), ar.Sig...)
	bad.Sig[0] ^= 1

	tests := []struct {
		name string
		op   string
		req  any
		want bridge.Status
	}{
		{"unknown op", "reboot", nil, bridge.StatusBadRequest},
		{"not joined", bridge.OpHandshake, nil, bridge.StatusTree},
		{"bad access right", bridge.OpGetState, bridge.AccessRequest{AccessRight: bad}, bridge.StatusCrypto},
		{"short ciphertext", bridge.OpInsertCiphertext, bridge.CiphertextRequest{Ciphertext: []byte{1}}, bridge.StatusCodec},
		{"garbage handshake", bridge.OpInsertHandshake, bridge.HandshakeRequest{Handshake: []byte{9, 9}}, bridge.StatusCodec},
		{"bad params", bridge.OpInstruction, bridge.InstructionRequest{
			AccessRight: ar, Target: addr, CallKind: uint32(token.CallMint), Params: []byte{1},
		}, bridge.StatusCodec},
		{"remove while not joined", bridge.OpRemoveMember, bridge.RemoveMemberRequest{RosterIndex: 1}, bridge.StatusTree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, f.call(tt.op, tt.req, nil))
		})
	}

	_, status := f.bridge.Call(f.ctx, bridge.OpGetState, []byte("{not json"))
	require.Equal(t, bridge.StatusBadRequest, status)
}

func TestBridgeTransitionAndStaleStatuses(t *testing.T) {
	f := newFixture(t)
	f.join()
	ar, addr := accessRight(t)
	_, bob := accessRight(t)

	require.Equal(t, bridge.StatusTransition, f.call(bridge.OpInstruction, bridge.InstructionRequest{
		AccessRight: ar, Target: bob, CallKind: uint32(token.CallTransfer), Params: token.Balance(1).Marshal(),
	}, nil))
	require.Equal(t, bridge.StatusTransition, f.call(bridge.OpInstruction, bridge.InstructionRequest{
		AccessRight: ar, Target: addr, CallKind: 99, Params: token.Balance(1).Marshal(),
	}, nil))

	var tx domain.InstructionTx
	require.Equal(t, bridge.StatusOK, f.call(bridge.OpInstruction, bridge.InstructionRequest{
		AccessRight: ar, Target: addr, CallKind: uint32(token.CallMint), Params: token.Balance(1).Marshal(),
	}, &tx))
	_, err := f.ledger.SubmitInstruction(f.ctx, tx)
	require.NoError(t, err)
	_, err = f.ledger.SubmitInstruction(f.ctx, tx)
	require.Equal(t, bridge.StatusStaleLockParam, bridge.StatusOf(err))
}

func TestStatusOf(t *testing.T) {
	require.Equal(t, bridge.StatusOK, bridge.StatusOf(nil))
	require.Equal(t, bridge.StatusIO, bridge.StatusOf(fmt.Errorf("disk: %w", domain.ErrIO)))
	require.Equal(t, bridge.StatusInternal, bridge.StatusOf(fmt.Errorf("boom")))
	require.Equal(t, "stale_lock_param", bridge.StatusStaleLockParam.String())
}

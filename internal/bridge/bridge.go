package bridge

import (
	"context"
	"fmt"

	json "github.com/nikkolasg/hexjson"

	"sealedstate/internal/domain"
	"sealedstate/internal/log"
	"sealedstate/internal/metrics"
	"sealedstate/internal/runtime"
	"sealedstate/internal/services/enclave"
	userstate "sealedstate/internal/state"
)

// Operation names accepted by Call.
const (
	OpInsertCiphertext     = "insert_ciphertext"
	OpInsertHandshake      = "insert_handshake"
	OpGetState             = "get_state"
	OpInitState            = "init_state"
	OpInstruction          = "instruction"
	OpHandshake            = "handshake"
	OpJoinGroup            = "join_group"
	OpAddMember            = "add_member"
	OpRemoveMember         = "remove_member"
	OpRegisterNotification = "register_notification"
	OpStatus               = "status"
)

type (
	// CiphertextRequest carries one ledger ciphertext.
	CiphertextRequest struct {
		Ciphertext []byte `json:"ciphertext"`
	}
	// CiphertextResponse holds the notification the ciphertext produced, if any.
	CiphertextResponse struct {
		Notification *domain.Notification `json:"notification,omitempty"`
	}
	// HandshakeRequest carries one ledger handshake.
	HandshakeRequest struct {
		Handshake []byte `json:"handshake"`
	}
	// AccessRequest proves control of a user address.
	AccessRequest struct {
		AccessRight domain.AccessRight `json:"access_right"`
	}
	// StateResponse holds the application encoding of a state.
	StateResponse struct {
		State []byte `json:"state"`
	}
	// InitStateRequest asks for the first state of the caller's address.
	InitStateRequest struct {
		AccessRight domain.AccessRight `json:"access_right"`
		State       []byte             `json:"state"`
	}
	// InstructionRequest asks for a state transition.
	InstructionRequest struct {
		AccessRight domain.AccessRight `json:"access_right"`
		Target      domain.UserAddress `json:"target"`
		CallKind    uint32             `json:"call_kind"`
		Params      []byte             `json:"params"`
	}
	// AddMemberRequest names the key package of the enclave to add.
	AddMemberRequest struct {
		KeyPackage domain.X25519Public `json:"key_package"`
	}
	// RemoveMemberRequest names the roster index to remove.
	RemoveMemberRequest struct {
		RosterIndex domain.RosterIndex `json:"roster_index"`
	}
	// RegisterResponse holds the address notifications will be sent for.
	RegisterResponse struct {
		Address domain.UserAddress `json:"address"`
	}
	// ErrorResponse is the body of every failed call.
	ErrorResponse struct {
		Error string `json:"error"`
	}
)

// Bridge dispatches calls to one enclave Context.
type Bridge[S userstate.State[S]] struct {
	enclave *enclave.Context[S]
	log     log.Logger
}

// New returns a bridge into c.
func New[S userstate.State[S]](c *enclave.Context[S], l log.Logger) *Bridge[S] {
	return &Bridge[S]{enclave: c, log: l.Named("bridge")}
}

// Call runs op on request. The response is the operation's result on
// StatusOK and an ErrorResponse otherwise.
func (b *Bridge[S]) Call(ctx context.Context, op string, request []byte) (response []byte, status Status) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("call panicked", "op", op, "panic", r)
			response, status = errorBody(fmt.Errorf("internal error in %s", op)), StatusInternal
		}
		metrics.RPCCalls.WithLabelValues(opLabel(op), status.String()).Inc()
	}()

	out, err := b.dispatch(ctx, op, request)
	if err != nil {
		status = StatusOf(err)
		b.log.Debugw("call failed", "op", op, "status", status, "err", err)
		return errorBody(err), status
	}
	response, err = json.Marshal(out)
	if err != nil {
		return errorBody(err), StatusInternal
	}
	return response, StatusOK
}

func (b *Bridge[S]) dispatch(ctx context.Context, op string, request []byte) (any, error) {
	c := b.enclave
	switch op {
	case OpInsertCiphertext:
		req, err := decode[CiphertextRequest](request)
		if err != nil {
			return nil, err
		}
		n, err := c.InsertCiphertext(ctx, req.Ciphertext)
		return CiphertextResponse{Notification: n}, err

	case OpInsertHandshake:
		req, err := decode[HandshakeRequest](request)
		if err != nil {
			return nil, err
		}
		return struct{}{}, c.InsertHandshake(ctx, req.Handshake)

	case OpGetState:
		req, err := decode[AccessRequest](request)
		if err != nil {
			return nil, err
		}
		s, err := c.GetState(ctx, req.AccessRight)
		if err != nil {
			return nil, err
		}
		return StateResponse{State: s.Marshal()}, nil

	case OpInitState:
		req, err := decode[InitStateRequest](request)
		if err != nil {
			return nil, err
		}
		s, err := unmarshalState[S](req.State)
		if err != nil {
			return nil, err
		}
		return c.InitState(ctx, req.AccessRight, s)

	case OpInstruction:
		req, err := decode[InstructionRequest](request)
		if err != nil {
			return nil, err
		}
		params, err := unmarshalState[S](req.Params)
		if err != nil {
			return nil, err
		}
		return c.Instruction(ctx, req.AccessRight, req.Target, runtime.CallKind(req.CallKind), params)

	case OpHandshake:
		return c.CreateHandshake(ctx)

	case OpJoinGroup:
		return c.JoinGroup(ctx)

	case OpAddMember:
		req, err := decode[AddMemberRequest](request)
		if err != nil {
			return nil, err
		}
		return c.AddMember(ctx, req.KeyPackage)

	case OpRemoveMember:
		req, err := decode[RemoveMemberRequest](request)
		if err != nil {
			return nil, err
		}
		return c.RemoveMember(ctx, req.RosterIndex)

	case OpRegisterNotification:
		req, err := decode[AccessRequest](request)
		if err != nil {
			return nil, err
		}
		addr, err := c.RegisterNotification(req.AccessRight)
		return RegisterResponse{Address: addr}, err

	case OpStatus:
		return c.Status(), nil

	default:
		return nil, fmt.Errorf("%w: unknown operation %q", errBadRequest, op)
	}
}

var knownOps = map[string]bool{
	OpInsertCiphertext: true, OpInsertHandshake: true, OpGetState: true, OpInitState: true,
	OpInstruction: true, OpHandshake: true, OpJoinGroup: true, OpAddMember: true,
	OpRemoveMember: true, OpRegisterNotification: true, OpStatus: true,
}

// opLabel keeps the metric label set bounded.
func opLabel(op string) string {
	if knownOps[op] {
		return op
	}
	return "unknown"
}

func decode[T any](b []byte) (T, error) {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return v, nil
}

func unmarshalState[S userstate.State[S]](b []byte) (S, error) {
	var zero S
	s, err := zero.Unmarshal(b)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", domain.ErrCodec, err)
	}
	return s, nil
}

func errorBody(err error) []byte {
	b, _ := json.Marshal(ErrorResponse{Error: err.Error()})
	return b
}

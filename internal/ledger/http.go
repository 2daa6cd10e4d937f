package ledger

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	json "github.com/nikkolasg/hexjson"

	"sealedstate/internal/domain"
)

// HTTP is a ledger client for a Handler.
type HTTP struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the ledger served at base.
func NewHTTP(base string) *HTTP { return &HTTP{Base: base, HTTP: http.DefaultClient} }

func (c *HTTP) SubmitJoin(ctx context.Context, tx domain.JoinGroupTx) (uint64, error) {
	return c.submit(ctx, "/join", tx)
}

func (c *HTTP) SubmitHandshake(ctx context.Context, tx domain.HandshakeTx) (uint64, error) {
	return c.submit(ctx, "/handshake", tx)
}

func (c *HTTP) SubmitInitState(ctx context.Context, tx domain.InitStateTx) (uint64, error) {
	return c.submit(ctx, "/init", tx)
}

func (c *HTTP) SubmitInstruction(ctx context.Context, tx domain.InstructionTx) (uint64, error) {
	return c.submit(ctx, "/instruction", tx)
}

func (c *HTTP) Entries(ctx context.Context, from uint64, limit int) ([]domain.Entry, error) {
	q := url.Values{}
	q.Set("from", strconv.FormatUint(from, 10))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []domain.Entry
	if err := c.do(ctx, http.MethodGet, "/entries?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) submit(ctx context.Context, path string, tx any) (uint64, error) {
	var out submitResponse
	if err := c.do(ctx, http.MethodPost, path, tx, &out); err != nil {
		return 0, err
	}
	return out.Seq, nil
}

func (c *HTTP) do(ctx context.Context, method, path string, in, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, &body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ledger %s %s: %v", domain.ErrIO, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%w: ledger %s %s: %s: %s", categoryFor(resp.StatusCode), method, path, resp.Status, e.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: ledger response: %v", domain.ErrCodec, err)
	}
	return nil
}

func categoryFor(status int) error {
	switch status {
	case http.StatusConflict:
		return domain.ErrStaleLockParam
	case http.StatusForbidden:
		return domain.ErrCrypto
	case http.StatusBadRequest:
		return domain.ErrCodec
	default:
		return domain.ErrIO
	}
}

var _ domain.Ledger = (*HTTP)(nil)

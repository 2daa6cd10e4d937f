package host

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	json "github.com/nikkolasg/hexjson"

	"sealedstate/internal/bridge"
	"sealedstate/internal/domain"
	"sealedstate/internal/services/sync"
)

// CallError is a call the enclave answered with a failure status.
type CallError struct {
	Op      string
	Status  bridge.Status
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Status, e.Message)
}

// Unwrap returns the error category of the status.
func (e *CallError) Unwrap() error { return e.Status.Err() }

// Client calls an enclave served by Handler.
type Client struct {
	Base string
	HTTP *http.Client
}

// NewClient returns a client for the host at base.
func NewClient(base string) *Client { return &Client{Base: base, HTTP: http.DefaultClient} }

// Call runs op with in as the request and decodes the response into out. A
// nil in sends an empty object; a nil out discards the response.
func (c *Client) Call(ctx context.Context, op string, in, out any) error {
	if in == nil {
		in = struct{}{}
	}
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := c.post(ctx, "/call/"+url.PathEscape(op), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: host %s: %v", domain.ErrIO, op, err)
	}

	status, ok := bridge.ParseStatus(resp.Header.Get(StatusHeader))
	if !ok {
		return fmt.Errorf("%w: host %s: %s without bridge status", domain.ErrIO, op, resp.Status)
	}
	if status != bridge.StatusOK {
		var e bridge.ErrorResponse
		_ = json.Unmarshal(raw, &e)
		return &CallError{Op: op, Status: status, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: host %s response: %v", domain.ErrCodec, op, err)
	}
	return nil
}

// Sync asks the host to ingest new ledger entries now.
func (c *Client) Sync(ctx context.Context) (*sync.Result, error) {
	resp, err := c.post(ctx, "/sync", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return e.Result, fmt.Errorf("host sync: %s: %s", resp.Status, e.Error)
	}
	var res sync.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: host sync response: %v", domain.ErrCodec, err)
	}
	return &res, nil
}

// Join catches the host up with l, asks it for a self-add and submits that
// to l. A self-add targets the next free roster index, so the enclave must
// have seen every join before it.
func (c *Client) Join(ctx context.Context, l domain.Ledger) (uint64, error) {
	if _, err := c.Sync(ctx); err != nil {
		return 0, err
	}
	var tx domain.JoinGroupTx
	if err := c.Call(ctx, bridge.OpJoinGroup, nil, &tx); err != nil {
		return 0, err
	}
	return l.SubmitJoin(ctx, tx)
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: host %s: %v", domain.ErrIO, path, err)
	}
	return resp, nil
}

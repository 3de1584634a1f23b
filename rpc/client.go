// Package rpc is the HTTP client for a remote Dytallix ledger node.
//
// The client only transports: it serializes envelopes the node already
// expects, maps server error payloads to CodedError, and leaves retry and
// timeout policy to the caller via context. It optionally archives every
// accepted envelope in a content-addressed store.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dytallix.io/pqcwallet/address"
	"dytallix.io/pqcwallet/archive"
	"dytallix.io/pqcwallet/tx"
)

// Transaction lifecycle states reported by the node.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// DefaultTimeout bounds a single request when the caller's context carries no
// deadline of its own.
const DefaultTimeout = 15 * time.Second

// Options configures a Client.
type Options struct {
	// HTTPClient overrides the transport; nil selects http.DefaultClient.
	HTTPClient *http.Client
	// Timeout replaces DefaultTimeout when positive.
	Timeout time.Duration
	// Archive, when set, receives every envelope the node accepts.
	Archive archive.Store
}

// Client talks to one node base URL.
type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
	archive archive.Store
}

// New constructs a client for a node base URL such as "http://localhost:26657".
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("rpc: invalid base url %q", baseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    hc,
		timeout: timeout,
		archive: opts.Archive,
	}, nil
}

// SubmitResult is the node's acknowledgement of a submitted transaction.
type SubmitResult struct {
	Hash   string `json:"hash"`
	Status string `json:"status"`
}

// TxStatus is the lifecycle record of a submitted transaction.
type TxStatus struct {
	Hash    string            `json:"hash"`
	Status  string            `json:"status"`
	Block   uint64            `json:"block,omitempty"`
	GasUsed uint64            `json:"gas_used,omitempty"`
	Events  []json.RawMessage `json:"events,omitempty"`
}

// Account is the node's view of an address.
type Account struct {
	Address  string            `json:"address"`
	Balances map[string]string `json:"balances"`
	Nonce    uint64            `json:"nonce"`
}

// SubmitTx posts a signed envelope. The envelope is verified locally first so
// an unverifiable payload never leaves the process; on acceptance it is
// archived when an archive store is configured.
func (c *Client) SubmitTx(ctx context.Context, env *tx.SignedTx) (*SubmitResult, error) {
	if err := env.Verify(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("rpc: encode envelope: %w", err)
	}

	var out SubmitResult
	if err := c.do(ctx, http.MethodPost, "/submit", body, &out); err != nil {
		return nil, err
	}
	if c.archive != nil {
		if _, err := archive.PutEnvelope(c.archive, env); err != nil {
			return nil, fmt.Errorf("rpc: submitted %s but archiving failed: %w", out.Hash, err)
		}
	}
	return &out, nil
}

// TxStatus fetches the lifecycle record for a 0x-prefixed transaction hash.
func (c *Client) TxStatus(ctx context.Context, hash string) (*TxStatus, error) {
	if !strings.HasPrefix(hash, "0x") || len(hash) != 2+64 {
		return nil, NewError(ErrInvalidRequest, fmt.Sprintf("malformed transaction hash %q", hash))
	}
	var out TxStatus
	if err := c.do(ctx, http.MethodGet, "/tx/"+url.PathEscape(hash), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Account fetches balances and the next nonce for an address.
func (c *Client) Account(ctx context.Context, addr string) (*Account, error) {
	if err := address.Validate(addr); err != nil {
		return nil, NewError(ErrInvalidRequest, fmt.Sprintf("invalid address %q: %v", addr, err))
	}
	var out Account
	if err := c.do(ctx, http.MethodGet, "/account/"+url.PathEscape(addr), nil, &out); err != nil {
		return nil, err
	}
	if out.Address == "" {
		out.Address = addr
	}
	return &out, nil
}

// NextNonce is a convenience for building the next transaction.
func (c *Client) NextNonce(ctx context.Context, addr string) (uint64, error) {
	acct, err := c.Account(ctx, addr)
	if err != nil {
		return 0, err
	}
	return acct.Nonce, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("rpc: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rpc: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("rpc: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, payload)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("rpc: decode response: %w", err)
	}
	return nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if _, ok := parent.Deadline(); ok {
		return parent, func() {}
	}
	return context.WithTimeout(parent, c.timeout)
}

// decodeError maps a server error payload to a CodedError. Nodes answer with
// either {"code","message"} or the terser {"error": "..."} shape; both map,
// and an unparseable body still yields a coded error from the HTTP status.
func decodeError(status int, payload []byte) error {
	var coded CodedError
	if err := json.Unmarshal(payload, &coded); err == nil && coded.Code != "" {
		coded.HTTPStatus = status
		return &coded
	}
	var terse struct {
		Error string `json:"error"`
	}
	code := codeForStatus(status)
	msg := strings.TrimSpace(string(payload))
	if err := json.Unmarshal(payload, &terse); err == nil && terse.Error != "" {
		msg = terse.Error
		if strings.EqualFold(terse.Error, "NotFound") {
			code = ErrNotFound
		}
		if strings.EqualFold(terse.Error, "InvalidNonce") {
			code = ErrInvalidNonce
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &CodedError{Code: code, Message: msg, HTTPStatus: status}
}

func codeForStatus(status int) ErrorCode {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusUnprocessableEntity:
		return ErrRejected
	case status >= 400 && status < 500:
		return ErrInvalidRequest
	default:
		return ErrInternal
	}
}

package client

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirinyoku/tix-ledger/internal/codec"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/identity"
	"github.com/kirinyoku/tix-ledger/internal/service/query"
)

// APIError is a non-2xx answer from the ledger API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("ledger api: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("ledger api: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Receipt is the outcome of a submitted transaction.
type Receipt struct {
	Digest   string         `json:"digest"`
	Result   *domain.Result `json:"result"`
	Replayed bool           `json:"-"`
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client.New: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client.New: base url %q needs scheme and host", baseURL)
	}

	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Submit posts a signed envelope to the transaction endpoint.
func (c *Client) Submit(ctx context.Context, env *identity.Envelope) (*Receipt, error) {
	const op = "client.Submit"

	body, err := env.Encode()
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/transactions"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	req.Header.Set("Content-Type", codec.ContentType)
	req.Header.Set("Accept", "application/json")

	var receipt Receipt
	resp, err := c.do(req, &receipt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	receipt.Replayed = resp.Header.Get("Idempotent-Replay") == "true"

	return &receipt, nil
}

// SignAndSubmit signs instr with private and submits it.
func (c *Client) SignAndSubmit(ctx context.Context, private ed25519.PrivateKey, instr domain.Instruction) (*Receipt, error) {
	env, err := identity.Sign(private, instr)
	if err != nil {
		return nil, err
	}
	return c.Submit(ctx, env)
}

func (c *Client) Catalog(ctx context.Context) (*query.CatalogView, error) {
	var v query.CatalogView
	if err := c.get(ctx, "/v1/catalog", &v); err != nil {
		return nil, fmt.Errorf("client.Catalog:%w", err)
	}
	return &v, nil
}

func (c *Client) Event(ctx context.Context, id uint32) (*query.EventView, error) {
	var v query.EventView
	if err := c.get(ctx, "/v1/events/"+strconv.FormatUint(uint64(id), 10), &v); err != nil {
		return nil, fmt.Errorf("client.Event:%w", err)
	}
	return &v, nil
}

func (c *Client) Ticket(ctx context.Context, eventID uint32, owner domain.Key) (*query.TicketView, error) {
	var v query.TicketView
	path := "/v1/events/" + strconv.FormatUint(uint64(eventID), 10) + "/tickets/" + owner.String()
	if err := c.get(ctx, path, &v); err != nil {
		return nil, fmt.Errorf("client.Ticket:%w", err)
	}
	return &v, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	_, err = c.do(req, out)
	return err
}

func (c *Client) do(req *http.Request, out any) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Error
		}
		return resp, apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp, fmt.Errorf("decoding response: %w", err)
	}

	return resp, nil
}

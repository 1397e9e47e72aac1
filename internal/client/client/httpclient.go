package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/netx"
)

type HTTPClient struct {
	baseURL string
	hc      *http.Client
	signer  *Signer
}

func NewHTTPClient(baseURL string, timeout time.Duration, signer *Signer) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
		signer:  signer,
	}
}

func (c *HTTPClient) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := getJSON(ctx, c.hc, c.baseURL+"/", &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return ErrUnavailable
	}
	return nil
}

func (c *HTTPClient) Call(ctx context.Context, tool string, params map[string]any) (map[string]any, error) {
	env, err := c.signer.Sign(tool, params)
	if err != nil {
		return nil, err
	}

	status, body, err := netx.DoJSON(ctx, c.hc, http.MethodPost, c.baseURL+"/mcp", env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status != http.StatusOK {
		return nil, decodeError(status, body)
	}

	var out map[string]any
	if err := decodeNumbers(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return out, nil
}

// decodeNumbers keeps numbers as json.Number so integers such as log
// indices survive unchanged.
func decodeNumbers(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

// decodeError turns an error response into the protocol error it carries.
func decodeError(status int, body []byte) error {
	var eb common.ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Error == nil || eb.Error.Code == "" {
		return fmt.Errorf("%w: status %d", ErrUnexpectedResponse, status)
	}
	return eb.Error
}

func getJSON(ctx context.Context, hc *http.Client, url string, v any) error {
	status, body, err := netx.DoJSON(ctx, hc, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status != http.StatusOK {
		return decodeError(status, body)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return nil
}

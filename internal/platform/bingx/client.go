// Package bingx is the REST client for the BingX perpetual swap API. It
// implements the position and settlement sources the reconciliation engine
// consumes, returning raw records so the engine's alias tables absorb field
// drift between API versions.
package bingx

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sunho-park/poswatch/internal/domain"
)

const defaultBaseURL = "https://open-api.bingx.com"

// Endpoint fallback lists: BingX has moved these routes between API versions,
// so each fetch walks the list until one answers.
var (
	positionPaths = []string{
		"/openApi/swap/v2/user/positions",
		"/openApi/swap/v1/user/positions",
	}
	incomePaths = []string{
		"/openApi/swap/v2/user/income",
		"/openApi/swap/v1/user/income",
	}
)

// Client is the REST client for the BingX perpetual swap API.
type Client struct {
	baseURL    string
	apiKey     string
	secret     string
	httpClient *http.Client
}

// NewClient creates a new BingX REST client. baseURL may be empty to use the
// public endpoint.
func NewClient(baseURL, apiKey, secret string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchPositions returns the raw open-position records for the whole account.
// An account with no open positions yields an empty slice.
func (c *Client) FetchPositions(ctx context.Context) ([]domain.RawRecord, error) {
	var lastErr error
	for _, path := range positionPaths {
		body, err := c.doSignedGet(ctx, path, url.Values{})
		if err != nil {
			lastErr = err
			continue
		}
		recs, err := unwrapRecords(body, "positions")
		if err != nil {
			lastErr = err
			continue
		}
		return recs, nil
	}
	return nil, fmt.Errorf("bingx: fetch positions: %w", lastErr)
}

// FetchSettlements returns the raw income (settlement) ledger entries for
// symbol over [startMs, endMs]. BingX has been observed to ignore the symbol
// filter, so callers must filter again.
func (c *Client) FetchSettlements(ctx context.Context, symbol string, startMs, endMs int64) ([]domain.RawRecord, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	params.Set("startTime", strconv.FormatInt(startMs, 10))
	params.Set("endTime", strconv.FormatInt(endMs, 10))
	params.Set("limit", "1000")

	var lastErr error
	for _, path := range incomePaths {
		body, err := c.doSignedGet(ctx, path, params)
		if err != nil {
			lastErr = err
			continue
		}
		recs, err := unwrapRecords(body, "income")
		if err != nil {
			lastErr = err
			continue
		}
		return recs, nil
	}
	return nil, fmt.Errorf("bingx: fetch settlements %s: %w", symbol, lastErr)
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doSignedGet builds, signs (HMAC-SHA256), sends, and reads a GET request
// against the BingX API.
func (c *Client) doSignedGet(ctx context.Context, path string, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	// The signature is the hex HMAC-SHA256 of the sorted query string.
	payload := q.Encode()
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))

	fullURL := c.baseURL + path + "?" + payload + "&signature=" + signature

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-BX-APIKEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bingx: HTTP %d: %s", resp.StatusCode, truncate(respBody, 200))
	}
	return respBody, nil
}

// unwrapRecords tolerantly extracts a list of records from a BingX response
// envelope. The payload may be a bare array, {"data": [...]}, or
// {"data": {"<listField>": [...]}} depending on route and API version.
func unwrapRecords(body []byte, listField string) ([]domain.RawRecord, error) {
	var envelope struct {
		Code int             `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 {
		if envelope.Code != 0 {
			return nil, fmt.Errorf("api code %d: %s", envelope.Code, envelope.Msg)
		}
		return coerceRecords(envelope.Data, listField)
	}
	return coerceRecords(body, listField)
}

func coerceRecords(data []byte, listField string) ([]domain.RawRecord, error) {
	var list []domain.RawRecord
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	for _, field := range []string{listField, "list", "rows", "records"} {
		raw, ok := wrapped[field]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode %s: %w", field, err)
		}
		return list, nil
	}
	// An object with none of the known list fields means "no rows".
	return nil, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Compile-time interface checks.
var (
	_ domain.PositionSource   = (*Client)(nil)
	_ domain.SettlementSource = (*Client)(nil)
)

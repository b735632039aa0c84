package suretax

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/evertel/billrun/internal/config"
	"github.com/evertel/billrun/internal/suretax/domain"
)

const (
	productionBaseURL = "https://api.taxrating.net"
	certBaseURL       = "https://testapi.taxrating.net"

	servicePath = "/Services/V07/SureTax.asmx/"

	endpointPostRequest          = "PostRequest"
	endpointCancelPostRequest    = "CancelPostRequest"
	endpointFinalizePostRequest  = "FinalizePostRequest"
	endpointPostTaxAdjustmentReq = "PostTaxAdjustmentRequest"
)

// Result carries a decoded response envelope together with the raw body it
// was decoded from, so the caller can persist the payload bit-for-bit.
type Result struct {
	Envelope *domain.ResponseEnvelope
	RawBody  []byte
}

// Client talks to the SureTax rating service. Credentials travel as request
// fields, not headers. The underlying http.Client carries no timeout: a
// submission must never be abandoned half-acknowledged mid-cycle.
type Client struct {
	clientNumber  string
	validationKey string
	baseURL       string
	httpClient    *http.Client
}

// NewClient selects the endpoint host from the configured environment.
// forceCert pins the test host regardless of configuration (dev runs).
func NewClient(cfg config.SureTaxConfig, forceCert bool) *Client {
	baseURL := certBaseURL
	if !forceCert && strings.EqualFold(cfg.Environment, config.EnvironmentProduction) {
		baseURL = productionBaseURL
	}
	return &Client{
		clientNumber:  cfg.ClientNumber,
		validationKey: cfg.ValidationKey,
		baseURL:       baseURL,
		httpClient:    &http.Client{},
	}
}

// CalculateTax submits a batch of items for rating. Credentials and the
// compliance month/year defaults are filled in here so call sites only
// describe the batch.
func (c *Client) CalculateTax(ctx context.Context, req domain.Request) (*Result, error) {
	req.ClientNumber = c.clientNumber
	req.ValidationKey = c.validationKey
	if req.CmplDataYear == "" {
		req.CmplDataYear = req.DataYear
	}
	if req.CmplDataMonth == "" {
		req.CmplDataMonth = req.DataMonth
	}
	if req.MasterTransID == "" {
		req.MasterTransID = "0"
	}
	return c.doRequest(ctx, endpointPostRequest, req)
}

// CancelTransaction voids a posted transaction. Not retried automatically.
func (c *Client) CancelTransaction(ctx context.Context, transID int64, clientTracking string) (*Result, error) {
	return c.doRequest(ctx, endpointCancelPostRequest, domain.CancelRequest{
		ClientNumber:   c.clientNumber,
		ValidationKey:  c.validationKey,
		TransID:        transID,
		ClientTracking: clientTracking,
	})
}

// FinalizeTransaction marks a master transaction final. Not retried
// automatically.
func (c *Client) FinalizeTransaction(ctx context.Context, masterTransID int64, clientTracking string) (*Result, error) {
	return c.doRequest(ctx, endpointFinalizePostRequest, domain.FinalizeRequest{
		ClientNumber:   c.clientNumber,
		ValidationKey:  c.validationKey,
		MasterTransID:  masterTransID,
		ClientTracking: clientTracking,
	})
}

// TaxAdjustment corrects tax on a posted transaction. Not retried
// automatically.
func (c *Client) TaxAdjustment(ctx context.Context, req domain.AdjustmentRequest) (*Result, error) {
	req.ClientNumber = c.clientNumber
	req.ValidationKey = c.validationKey
	if req.CmplDataYear == "" {
		req.CmplDataYear = req.DataYear
	}
	if req.CmplDataMonth == "" {
		req.CmplDataMonth = req.DataMonth
	}
	if req.ClientTracking == "" {
		req.ClientTracking = "TaxAdjust"
	}
	if req.MasterTransID == "" {
		req.MasterTransID = "0"
	}
	return c.doRequest(ctx, endpointPostTaxAdjustmentReq, req)
}

func (c *Client) doRequest(ctx context.Context, endpoint string, payload any) (*Result, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("suretax: encode request: %w", err)
	}

	// The wire contract is a single form field holding percent-encoded
	// JSON. This double encoding must be preserved exactly.
	body := "request=" + percentEncode(string(encoded))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+servicePath+endpoint, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("suretax: post %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("suretax: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("suretax: http %d from %s: %s", resp.StatusCode, endpoint, strings.TrimSpace(string(raw)))
	}

	envelope, err := domain.DecodeResponseBody(raw)
	if err != nil {
		return nil, err
	}
	return &Result{Envelope: envelope, RawBody: raw}, nil
}

// percentEncode escapes every byte outside the unreserved set as %XX.
// Stricter than url.QueryEscape (no '+' for space); the service expects
// the full reserved set escaped.
func percentEncode(s string) string {
	const upperhex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' || ch >= '0' && ch <= '9' ||
			ch == '-' || ch == '_' || ch == '.' || ch == '~' {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[ch>>4])
		b.WriteByte(upperhex[ch&0x0F])
	}
	return b.String()
}

package alphasecapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// ProductionAPIURL is the official AlphaSec API endpoint on Kaia mainnet.
	ProductionAPIURL = "https://api.alphasec.trade"

	// TestnetAPIURL is the AlphaSec API endpoint on the Kairos testnet.
	TestnetAPIURL = "https://api-testnet.alphasec.trade"

	UserAgent = "alphasec-go/1.0"

	defaultHTTPTimeout = time.Second * 15
)

var logger = log.WithField("exchange", "alphasec")

// restSharedLimiter is shared by all REST clients in the process since the
// exchange throttles by source IP.
var restSharedLimiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 10)

// Response is a wrapper for the standard http.Response and provides
// more methods.
type Response struct {
	*http.Response

	// Body overrides the composited Body field.
	Body []byte
}

// newResponse reads the response body and closes it.
func newResponse(r *http.Response) (response *Response, err error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	err = r.Body.Close()
	response = &Response{Response: r, Body: body}
	return response, err
}

func (r *Response) String() string {
	return string(r.Body)
}

func (r *Response) DecodeJSON(o interface{}) error {
	return json.Unmarshal(r.Body, o)
}

// apiEnvelope is the uniform response wrapper of the exchange API.
// code 200 means success, any other code carries errMsg.
type apiEnvelope struct {
	Code   int             `json:"code"`
	Result json.RawMessage `json:"result"`
	ErrMsg string          `json:"errMsg"`
}

type RestClient struct {
	client *http.Client

	BaseURL *url.URL

	MarketService *MarketService
	WalletService *WalletService
	OrderService  *OrderService

	metadata *TokenMetadata
}

func NewRestClientWithHttpClient(baseURL string, httpClient *http.Client) (*RestClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid base url: %s", baseURL)
	}

	var client = &RestClient{
		client:  httpClient,
		BaseURL: u,
	}

	client.MarketService = &MarketService{client}
	client.WalletService = &WalletService{client}
	client.OrderService = &OrderService{client}
	return client, nil
}

func NewRestClient(baseURL string) (*RestClient, error) {
	return NewRestClientWithHttpClient(baseURL, &http.Client{
		Timeout: defaultHTTPTimeout,
	})
}

// InitializeMetadata loads the token list and builds the symbol and market id
// lookup tables. Call it once before using symbol based helpers.
func (c *RestClient) InitializeMetadata(ctx context.Context) error {
	tokens, err := c.MarketService.Tokens(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load token metadata")
	}

	c.metadata = NewTokenMetadata(tokens)
	logger.Infof("loaded token metadata: %d tokens", len(tokens))
	return nil
}

// Metadata returns the token metadata, nil until InitializeMetadata succeeds.
func (c *RestClient) Metadata() *TokenMetadata {
	return c.metadata
}

// newRequest creates a new API request. A relative url can be provided in refURL.
func (c *RestClient) newRequest(
	ctx context.Context, method string, refURL string, params url.Values, body []byte,
) (*http.Request, error) {
	rel, err := url.Parse(refURL)
	if err != nil {
		return nil, err
	}
	if params != nil {
		rel.RawQuery = params.Encode()
	}

	u := c.BaseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Add("User-Agent", UserAgent)
	if len(body) > 0 {
		req.Header.Add("Content-Type", "application/json")
	}

	return req, nil
}

func (c *RestClient) sendRequest(req *http.Request) (*Response, error) {
	if err := restSharedLimiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	response, err := newResponse(resp)
	if err != nil {
		return response, err
	}

	if response.StatusCode != http.StatusOK {
		return response, errors.Errorf("unexpected http status %d: %s", response.StatusCode, response.String())
	}

	return response, nil
}

// get issues a GET request and decodes the result field of the envelope into out.
func (c *RestClient) get(ctx context.Context, refURL string, params url.Values, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, refURL, params, nil)
	if err != nil {
		return err
	}

	response, err := c.sendRequest(req)
	if err != nil {
		return err
	}

	var envelope apiEnvelope
	if err := response.DecodeJSON(&envelope); err != nil {
		return errors.Wrapf(err, "malformed response: %s", response.String())
	}

	if envelope.Code != http.StatusOK {
		return &APIError{Code: envelope.Code, Message: envelope.ErrMsg}
	}

	if out == nil {
		return nil
	}

	return json.Unmarshal(envelope.Result, out)
}

// post issues a JSON POST request and returns the raw result field of the
// envelope. A non-200 envelope code becomes an *APIError.
func (c *RestClient) post(ctx context.Context, refURL string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, refURL, nil, body)
	if err != nil {
		return nil, err
	}

	response, err := c.sendRequest(req)
	if err != nil {
		return nil, err
	}

	var envelope apiEnvelope
	if err := response.DecodeJSON(&envelope); err != nil {
		return nil, errors.Wrapf(err, "malformed response: %s", response.String())
	}

	if envelope.Code != http.StatusOK {
		return nil, &APIError{Code: envelope.Code, Message: envelope.ErrMsg}
	}

	return envelope.Result, nil
}

// submitTx posts a raw signed transaction to a submission endpoint and
// returns the transaction hash echoed by the server.
func (c *RestClient) submitTx(ctx context.Context, refURL string, payload interface{}) (string, error) {
	result, err := c.post(ctx, refURL, payload)
	if err != nil {
		return "", err
	}

	var txHash string
	if err := json.Unmarshal(result, &txHash); err != nil {
		// some deployments return the hash unquoted
		return string(bytes.Trim(result, `"`)), nil
	}

	return txHash, nil
}

package standardbooks

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Config holds the connection settings for one Standard Books install: the
// full base URL (protocol, port and company id included) plus the HTTP
// basic auth credentials.
type Config struct {
	BaseURL  string
	Username string
	Password string
}

// Client talks to the Standard Books XML API. Every operation performs
// exactly one HTTP round trip on the calling goroutine; there is no retry
// or queueing here, failures surface immediately.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.SugaredLogger
}

// NewClient builds an API client with a keep-alive tuned, trace-instrumented
// transport.
func NewClient(cfg Config, log *zap.SugaredLogger) *Client {
	return &Client{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: otelhttp.NewTransport(&http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
			}),
		},
	}
}

// perform executes one round trip and returns the raw response body and
// status code. Parsing is left to the caller: read operations short-circuit
// on non-200 before ever touching the body.
func (c *Client) perform(ctx context.Context, req Request) ([]byte, int, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + req.Path
	if q := req.Query(); q != "" {
		endpoint += "?" + q
	}

	var body io.Reader
	if b := req.Body(); b != "" {
		body = strings.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	httpReq.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	httpReq.Header.Set("Connection", "keep-alive")
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.log.Debugw("standard books request", "method", req.Method, "path", req.Path)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("call standard books api: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, httpResp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	return raw, httpResp.StatusCode, nil
}

// UpsertCustomer creates or updates a CUVc record and returns the stored
// customer. When the payload carries an existing Code the API updates that
// customer in place.
func (c *Client) UpsertCustomer(ctx context.Context, payload Payload) (*Customer, error) {
	raw, status, err := c.perform(ctx, NewRequest("CUVc", http.MethodPost, AddSetFieldPrefix(payload)))
	if err != nil {
		return nil, err
	}

	resp, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("customer request returned status %d", status)
	}

	node := resp.Payload.Child("CUVc")
	if node == nil {
		return nil, fmt.Errorf("customer response missing CUVc record")
	}
	return customerFromNode(node), nil
}

// CreateInvoice submits an invoice payload. With an empty existingID the
// invoice is created (POST IVVc); with a previously stored serial the call
// becomes an update (PATCH IVVc/{id}). Informational envelope messages are
// returned alongside the invoice so the caller can persist them as notes.
func (c *Client) CreateInvoice(ctx context.Context, payload Payload, existingID string) (*Invoice, []string, error) {
	path, method := "IVVc", http.MethodPost
	if existingID != "" {
		path, method = "IVVc/"+existingID, http.MethodPatch
	}

	raw, status, err := c.perform(ctx, NewRequest(path, method, AddSetFieldPrefix(payload)))
	if err != nil {
		return nil, nil, err
	}

	resp, err := ParseResponse(raw)
	if err != nil {
		return nil, nil, err
	}
	if status != http.StatusOK {
		return nil, resp.Messages, fmt.Errorf("invoice request returned status %d", status)
	}

	node := resp.Payload.Child("IVVc")
	if node == nil {
		return nil, resp.Messages, fmt.Errorf("invoice response missing IVVc record")
	}
	return invoiceFromNode(node), resp.Messages, nil
}

// RegisterPayment records a payment (IPVc) against an already created
// invoice.
func (c *Client) RegisterPayment(ctx context.Context, payload Payload) error {
	raw, status, err := c.perform(ctx, NewRequest("IPVc", http.MethodPost, AddSetFieldPrefix(payload)))
	if err != nil {
		return err
	}

	if _, err := ParseResponse(raw); err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("payment request returned status %d", status)
	}
	return nil
}

// GetArticle looks one article up by code. Returns nil without error when
// the article does not exist or the endpoint answers non-200.
func (c *Client) GetArticle(ctx context.Context, code string) (*Article, error) {
	params := AddFilterPrefix(Payload{Fields: map[string]string{"Code": code}})

	raw, status, err := c.perform(ctx, NewRequest("INVc", http.MethodGet, params))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, nil
	}

	resp, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	node := resp.Payload.Child("INVc")
	if node == nil {
		return nil, nil
	}
	return articleFromNode(node), nil
}

// GetAllArticles fetches the full article register.
func (c *Client) GetAllArticles(ctx context.Context) ([]Article, error) {
	raw, status, err := c.perform(ctx, NewRequest("INVc", http.MethodGet, nil))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, nil
	}

	resp, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}

	var articles []Article
	for _, node := range resp.Payload.ChildAll("INVc") {
		articles = append(articles, *articleFromNode(node))
	}
	return articles, nil
}

// GetArticleNotes returns the article's free-text notes field, or an empty
// string when the article is missing.
func (c *Client) GetArticleNotes(ctx context.Context, code string) (string, error) {
	article, err := c.GetArticle(ctx, code)
	if err != nil || article == nil {
		return "", err
	}
	return article.Notes, nil
}

// GetArticleStock queries the stock level of one article in the given
// warehouse. Returns nil without error when nothing matches or the endpoint
// answers non-200.
func (c *Client) GetArticleStock(ctx context.Context, code, warehouse string) (*ArticleStock, error) {
	params := AddFilterPrefix(Payload{Fields: map[string]string{
		"Code":     code,
		"Location": warehouse,
	}})

	raw, status, err := c.perform(ctx, NewRequest("ItemStatusVc", http.MethodGet, params))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, nil
	}

	resp, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	node := resp.Payload.Child("ItemStatusVc")
	if node == nil {
		return nil, nil
	}
	return articleStockFromNode(node), nil
}

// GetTaxes fetches the full VATCodeBlock tax table, unfiltered.
func (c *Client) GetTaxes(ctx context.Context) ([]TaxRow, error) {
	raw, status, err := c.perform(ctx, NewRequest("VATCodeBlock", http.MethodGet, nil))
	if err != nil {
		return nil, err
	}

	resp, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("tax table request returned status %d", status)
	}

	block := resp.Payload.Child("VATCodeBlock")
	if block == nil {
		return nil, fmt.Errorf("tax table response missing VATCodeBlock")
	}
	rows := block.Child("rows")
	if rows == nil {
		return nil, nil
	}

	var taxes []TaxRow
	for _, row := range rows.ChildAll("row") {
		taxes = append(taxes, TaxRow{
			VATCode: row.Field("VATCode"),
			Comment: row.Field("Comment"),
		})
	}
	return taxes, nil
}

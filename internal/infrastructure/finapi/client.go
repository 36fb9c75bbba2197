package finapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kontor/backend/internal/infrastructure/config"
)

const (
	maxResponseSize   = 4 << 20
	transactionsLimit = 500
	// tokens are refreshed this long before they expire
	tokenSafetyMargin = 60 * time.Second
	defaultTimeout    = 30 * time.Second
	userIDPrefix      = "kontor-"
)

type cachedToken struct {
	value   string
	expires time.Time
}

func (t cachedToken) valid(now time.Time) bool {
	return t.value != "" && now.Add(tokenSafetyMargin).Before(t.expires)
}

// Client talks to the FinAPI access and web form APIs
type Client struct {
	baseURL        string
	webFormBaseURL string
	clientID       string
	clientSecret   string
	httpClient     *http.Client
	logger         *zap.Logger
	now            func() time.Time

	mu          sync.Mutex
	clientToken cachedToken
	userTokens  map[uuid.UUID]cachedToken
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// NewClient creates a FinAPI client
func NewClient(cfg config.FinAPIConfig, logger *zap.Logger, opts ...Option) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	webForm := cfg.WebFormBaseURL
	if webForm == "" {
		webForm = cfg.BaseURL
	}

	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		webFormBaseURL: strings.TrimRight(webForm, "/"),
		clientID:       cfg.ClientID,
		clientSecret:   cfg.ClientSecret,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger.Named("finapi"),
		now:            time.Now,
		userTokens:     make(map[uuid.UUID]cachedToken),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// UserID is the FinAPI user id owned by a tenant
func UserID(tenantID uuid.UUID) string {
	return userIDPrefix + tenantID.String()
}

// userPassword derives a stable password so no credentials are stored per tenant
func (c *Client) userPassword(tenantID uuid.UUID) string {
	mac := hmac.New(sha256.New, []byte(c.clientSecret))
	mac.Write([]byte(tenantID.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreateWebForm starts a bank connection import for the tenant and returns the hosted form
func (c *Client) CreateWebForm(ctx context.Context, tenantID uuid.UUID, bankName string) (*WebForm, error) {
	if err := c.ensureUser(ctx, tenantID); err != nil {
		return nil, err
	}
	token, err := c.userToken(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	body := map[string]any{}
	if bankName != "" {
		body["bank"] = map[string]any{"search": bankName}
	}
	var form WebForm
	if err := c.doJSON(ctx, http.MethodPost, c.webFormBaseURL+"/api/webForms/bankConnectionImport", token, body, &form); err != nil {
		return nil, fmt.Errorf("finapi: create web form: %w", err)
	}
	c.logger.Info("Web form created",
		zap.String("tenant_id", tenantID.String()),
		zap.Int64("web_form_id", form.ID),
	)
	return &form, nil
}

// GetWebForm fetches the state of a web form
func (c *Client) GetWebForm(ctx context.Context, tenantID uuid.UUID, webFormID int64) (*WebForm, error) {
	token, err := c.userToken(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var form WebForm
	endpoint := c.webFormBaseURL + "/api/webForms/" + strconv.FormatInt(webFormID, 10)
	if err := c.doJSON(ctx, http.MethodGet, endpoint, token, nil, &form); err != nil {
		return nil, fmt.Errorf("finapi: get web form: %w", err)
	}
	return &form, nil
}

// ListAccounts returns the accounts of a bank connection, enriched with the bank name and BIC
func (c *Client) ListAccounts(ctx context.Context, tenantID uuid.UUID, connectionID int64) ([]Account, error) {
	token, err := c.userToken(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	connID := strconv.FormatInt(connectionID, 10)

	var conn bankConnection
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/v2/bankConnections/"+connID, token, nil, &conn); err != nil {
		return nil, fmt.Errorf("finapi: get bank connection: %w", err)
	}

	q := url.Values{}
	q.Set("bankConnectionIds", connID)
	var list accountList
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/v2/accounts?"+q.Encode(), token, nil, &list); err != nil {
		return nil, fmt.Errorf("finapi: list accounts: %w", err)
	}
	for i := range list.Accounts {
		list.Accounts[i].BankName = conn.Bank.Name
		list.Accounts[i].BIC = conn.Bank.BIC
	}
	return list.Accounts, nil
}

// ListTransactions pages through all transactions of an account booked on or after since
func (c *Client) ListTransactions(ctx context.Context, tenantID uuid.UUID, accountID int64, since time.Time) ([]Transaction, error) {
	token, err := c.userToken(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var all []Transaction
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("view", "userView")
		q.Set("accountIds", strconv.FormatInt(accountID, 10))
		q.Set("minBankBookingDate", since.Format(dateLayout))
		q.Set("page", strconv.Itoa(page))
		q.Set("perPage", strconv.Itoa(transactionsLimit))

		var resp transactionPage
		if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/v2/transactions?"+q.Encode(), token, nil, &resp); err != nil {
			return nil, fmt.Errorf("finapi: list transactions page %d: %w", page, err)
		}
		all = append(all, resp.Transactions...)
		if page >= resp.Paging.PageCount || len(resp.Transactions) == 0 {
			break
		}
	}
	return all, nil
}

// ensureUser creates the tenant's FinAPI user; an existing user is not an error
func (c *Client) ensureUser(ctx context.Context, tenantID uuid.UUID) error {
	token, err := c.clientCredentialsToken(ctx)
	if err != nil {
		return err
	}
	body := map[string]any{
		"id":       UserID(tenantID),
		"password": c.userPassword(tenantID),
	}
	err = c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/v2/users", token, body, nil)
	if err == nil || isUserExists(err) {
		return nil
	}
	return fmt.Errorf("finapi: create user: %w", err)
}

func (c *Client) clientCredentialsToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.clientToken.valid(c.now()) {
		v := c.clientToken.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	tok, err := c.requestToken(ctx, form)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.clientToken = tok
	c.mu.Unlock()
	return tok.value, nil
}

func (c *Client) userToken(ctx context.Context, tenantID uuid.UUID) (string, error) {
	c.mu.Lock()
	if t, ok := c.userTokens[tenantID]; ok && t.valid(c.now()) {
		c.mu.Unlock()
		return t.value, nil
	}
	c.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("username", UserID(tenantID))
	form.Set("password", c.userPassword(tenantID))
	tok, err := c.requestToken(ctx, form)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.userTokens[tenantID] = tok
	c.mu.Unlock()
	return tok.value, nil
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (cachedToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return cachedToken{}, fmt.Errorf("finapi: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, status, err := c.send(req)
	if err != nil {
		return cachedToken{}, err
	}
	if status == http.StatusUnauthorized || status == http.StatusBadRequest {
		return cachedToken{}, fmt.Errorf("%w: HTTP %d", ErrUnauthorized, status)
	}
	if status >= 400 {
		return cachedToken{}, fmt.Errorf("%w: token HTTP %d", ErrRequestFailed, status)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return cachedToken{}, fmt.Errorf("finapi: failed to decode token: %w", err)
	}
	return cachedToken{
		value:   tr.AccessToken,
		expires: c.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.status, e.code, e.message)
}

func (e *apiError) Unwrap() error {
	switch e.status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrRequestFailed
	}
}

func isUserExists(err error) bool {
	var ae *apiError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.status == http.StatusUnprocessableEntity || ae.code == "ENTITY_EXISTS"
}

func (c *Client) doJSON(ctx context.Context, method, endpoint, token string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	body, status, err := c.send(req)
	if err != nil {
		return err
	}
	if status >= 400 {
		ae := &apiError{status: status}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && len(er.Errors) > 0 {
			ae.code = er.Errors[0].Code
			ae.message = er.Errors[0].Message
		}
		return ae
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) send(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, fmt.Errorf("finapi: failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

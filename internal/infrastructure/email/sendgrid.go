// Package email delivers transactional mail through the SendGrid v3 API.
package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kontor/backend/internal/infrastructure/config"
)

const (
	defaultBaseURL = "https://api.sendgrid.com"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 << 10
)

var (
	// ErrDeliveryFailed is returned when SendGrid rejects a message
	ErrDeliveryFailed = errors.New("email: delivery failed")
	errNoRecipient    = errors.New("email: recipient is required")
)

// Attachment is a file sent along with a message
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a single outgoing email
type Message struct {
	To          string
	ToName      string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// SendGridClient sends messages; when no API key is configured sending is logged and skipped
type SendGridClient struct {
	apiKey     string
	baseURL    string
	from       address
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSendGridClient creates a client from configuration
func NewSendGridClient(cfg config.EmailConfig, logger *zap.Logger) *SendGridClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SendGridClient{
		apiKey:     cfg.SendGridAPIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		from:       address{Email: cfg.FromAddress, Name: cfg.FromName},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("email"),
	}
}

// Enabled reports whether messages are actually delivered
func (c *SendGridClient) Enabled() bool {
	return c.apiKey != ""
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type attachment struct {
	Content     string `json:"content"`
	Type        string `json:"type,omitempty"`
	Filename    string `json:"filename"`
	Disposition string `json:"disposition"`
}

type mailSend struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
	Attachments      []attachment      `json:"attachments,omitempty"`
}

func (c *SendGridClient) payload(msg Message) mailSend {
	body := mailSend{
		Personalizations: []personalization{{To: []address{{Email: msg.To, Name: msg.ToName}}}},
		From:             c.from,
		Subject:          msg.Subject,
	}
	if msg.Text != "" {
		body.Content = append(body.Content, content{Type: "text/plain", Value: msg.Text})
	}
	if msg.HTML != "" {
		body.Content = append(body.Content, content{Type: "text/html", Value: msg.HTML})
	}
	if len(body.Content) == 0 {
		body.Content = []content{{Type: "text/plain", Value: " "}}
	}
	for _, a := range msg.Attachments {
		body.Attachments = append(body.Attachments, attachment{
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			Type:        a.ContentType,
			Filename:    a.Filename,
			Disposition: "attachment",
		})
	}
	return body
}

// Send delivers a message
func (c *SendGridClient) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errNoRecipient
	}
	if !c.Enabled() {
		c.logger.Info("Email delivery disabled, message skipped",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Int("attachments", len(msg.Attachments)),
		)
		return nil
	}

	payload, err := json.Marshal(c.payload(msg))
	if err != nil {
		return fmt.Errorf("email: failed to marshal message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("email: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: HTTP %d: %s", ErrDeliveryFailed, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	c.logger.Debug("Email sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("message_id", resp.Header.Get("X-Message-Id")),
	)
	return nil
}

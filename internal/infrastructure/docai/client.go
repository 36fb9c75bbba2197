// Package docai sends receipt documents to the document analysis endpoint
// and maps the extracted fields onto receipt.Analysis.
package docai

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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kontor/backend/internal/domain/receipt"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/kontor/backend/internal/infrastructure/config"
)

const (
	defaultTimeout  = 60 * time.Second
	maxResponseSize = 1 << 20
)

var (
	// ErrNotConfigured is returned when no endpoint is set
	ErrNotConfigured = errors.New("docai: analysis endpoint is not configured")
	// ErrAnalysisFailed is returned for non-2xx responses
	ErrAnalysisFailed = errors.New("docai: analysis failed")
)

// Client calls the analysis endpoint
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an analysis client
func NewClient(cfg config.AIConfig, logger *zap.Logger) (*Client, error) {
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
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("docai"),
	}, nil
}

type request struct {
	File        string `json:"file"`
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name,omitempty"`
}

// result mirrors the endpoint response; amounts may arrive as numbers or strings
type result struct {
	Vendor        string           `json:"vendor"`
	ReceiptNumber string           `json:"receipt_number"`
	Date          string           `json:"date"`
	GrossAmount   *decimal.Decimal `json:"gross_amount"`
	NetAmount     *decimal.Decimal `json:"net_amount"`
	VATAmount     *decimal.Decimal `json:"vat_amount"`
	VATRate       *float64         `json:"vat_rate"`
	Category      string           `json:"category"`
	Confidence    float64          `json:"confidence"`
}

var dateLayouts = []string{"2006-01-02", "02.01.2006", "2006-01-02T15:04:05Z07:00"}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

func (r result) toAnalysis(raw []byte) receipt.Analysis {
	a := receipt.Analysis{
		VendorName:    r.Vendor,
		ReceiptNumber: r.ReceiptNumber,
		ReceiptDate:   parseDate(r.Date),
		GrossAmount:   r.GrossAmount,
		NetAmount:     r.NetAmount,
		VATAmount:     r.VATAmount,
		CategoryCode:  r.Category,
		Confidence:    r.Confidence,
		Raw:           string(raw),
	}
	if r.VATRate != nil {
		pct := *r.VATRate
		// some models answer with a fraction
		if pct > 0 && pct < 1 {
			pct *= 100
		}
		if rate, err := valueobject.ParseVATRate(int(pct + 0.5)); err == nil {
			a.VATRate = &rate
		}
	}
	return a
}

// Analyze extracts vendor, date and amounts from a document
func (c *Client) Analyze(ctx context.Context, fileName, contentType string, content []byte) (receipt.Analysis, error) {
	payload, err := json.Marshal(request{
		File:        base64.StdEncoding.EncodeToString(content),
		ContentType: contentType,
		FileName:    fileName,
	})
	if err != nil {
		return receipt.Analysis{}, fmt.Errorf("docai: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return receipt.Analysis{}, fmt.Errorf("docai: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return receipt.Analysis{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return receipt.Analysis{}, fmt.Errorf("docai: failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return receipt.Analysis{}, fmt.Errorf("%w: HTTP %d", ErrAnalysisFailed, resp.StatusCode)
	}

	var res result
	if err := json.Unmarshal(body, &res); err != nil {
		return receipt.Analysis{}, fmt.Errorf("docai: failed to decode response: %w", err)
	}

	c.logger.Debug("Document analyzed",
		zap.String("file_name", fileName),
		zap.Float64("confidence", res.Confidence),
		zap.Duration("latency", time.Since(start)),
	)
	return res.toAnalysis(body), nil
}

// Package pdf renders invoices to PDF documents.
//
// Invoice data is first rendered into an HTML document with html/template and
// then printed by headless Chrome through the DevTools protocol.
package pdf

import (
	"context"
	"time"
)

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeInvalidHTML   = "INVALID_HTML"
	ErrCodeTemplate      = "TEMPLATE_FAILED"
)

// RenderError represents an error during PDF rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

// Margins in millimeters
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// DefaultMargins follow DIN 5008 for business letters
func DefaultMargins() Margins {
	return Margins{Top: 20, Right: 20, Bottom: 20, Left: 25}
}

// RenderRequest contains the parameters for rendering HTML to PDF
type RenderRequest struct {
	HTML string
	// Title for the PDF document metadata
	Title      string
	Margins    Margins
	FooterHTML string
	Timeout    time.Duration
}

// HTMLRenderer converts an HTML document to PDF bytes
type HTMLRenderer interface {
	Render(ctx context.Context, req *RenderRequest) ([]byte, error)
	Close() error
}

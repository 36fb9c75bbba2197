package pdf

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kontor/backend/internal/infrastructure/config"
)

func TestBuildPrintParams(t *testing.T) {
	t.Run("A4 with default margins", func(t *testing.T) {
		p := buildPrintParams(&RenderRequest{HTML: "<p>x</p>"})

		assert.InDelta(t, mmToInches(210), p.paperWidth, 0.001)
		assert.InDelta(t, mmToInches(297), p.paperHeight, 0.001)
		assert.InDelta(t, mmToInches(25), p.marginLeft, 0.001)
		assert.Empty(t, p.footer)
	})

	t.Run("footer enforces a bottom margin", func(t *testing.T) {
		p := buildPrintParams(&RenderRequest{
			HTML:       "<p>x</p>",
			Margins:    Margins{Top: 10, Right: 10, Bottom: 5, Left: 10},
			FooterHTML: "<span>footer</span>",
		})
		assert.InDelta(t, mmToInches(15), p.marginBottom, 0.001)
	})
}

func TestWrapDocument(t *testing.T) {
	t.Run("wraps fragments", func(t *testing.T) {
		out := wrapDocument(&RenderRequest{HTML: "<p>Hallo</p>", Title: "A & B"})
		assert.Contains(t, out, "<!DOCTYPE html>")
		assert.Contains(t, out, "<title>A &amp; B</title>")
		assert.Contains(t, out, "<p>Hallo</p>")
	})

	t.Run("keeps full documents", func(t *testing.T) {
		in := "<!DOCTYPE html><html><body>x</body></html>"
		assert.Equal(t, in, wrapDocument(&RenderRequest{HTML: in}))
	})
}

func TestChromedpRenderer_RejectsEmptyHTML(t *testing.T) {
	r := NewChromedpRenderer(config.PDFConfig{}, nil)
	defer r.Close()

	_, err := r.Render(context.Background(), &RenderRequest{HTML: "  "})
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeInvalidHTML, re.Code)
}

func chromeAvailable() string {
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

func TestChromedpRenderer_RenderInvoice(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	path := chromeAvailable()
	if path == "" {
		t.Skip("no Chrome binary found")
	}

	r := NewChromedpRenderer(config.PDFConfig{ExecPath: path, Timeout: 60 * time.Second}, nil)
	inv := NewInvoiceRenderer(r)
	defer inv.Close()

	out, err := inv.RenderInvoice(context.Background(), testDocument(t, false))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

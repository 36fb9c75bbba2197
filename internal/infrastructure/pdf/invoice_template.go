package pdf

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/contact"
	"github.com/kontor/backend/internal/domain/invoice"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
)

// InvoiceDocument is everything printed on an invoice
type InvoiceDocument struct {
	Invoice *invoice.Invoice
	Company *company.Company
	Contact *contact.Contact
}

var invoiceFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string {
		return valueobject.FormatGerman(d) + " €"
	},
	"qty": func(d decimal.Decimal) string {
		s := d.String()
		out := make([]byte, 0, len(s))
		for i := 0; i < len(s); i++ {
			if s[i] == '.' {
				out = append(out, ',')
				continue
			}
			out = append(out, s[i])
		}
		return string(out)
	},
	"date": func(t time.Time) string {
		return t.Format("02.01.2006")
	},
	"optdate": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("02.01.2006")
	},
	"rate": func(r valueobject.VATRate) string {
		return r.String()
	},
	"nonzero": func(d decimal.Decimal) bool {
		return !d.IsZero()
	},
	"iban": func(s string) string {
		return valueobject.IBAN(valueobject.NormalizeIBAN(s)).Formatted()
	},
}

var invoiceTemplate = template.Must(template.New("invoice").Funcs(invoiceFuncs).Parse(`<!DOCTYPE html>
<html lang="de">
<head>
<meta charset="UTF-8">
<title>Rechnung {{.Invoice.Number}}</title>
<style>
body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 10pt; color: #222; }
.sender { font-size: 7pt; color: #666; border-bottom: 1px solid #999; margin-bottom: 4mm; }
.head { display: flex; justify-content: space-between; margin-bottom: 12mm; }
.meta td { padding: 0 0 0 6mm; }
h1 { font-size: 16pt; margin: 0 0 6mm 0; }
table.items { width: 100%; border-collapse: collapse; }
table.items th { text-align: left; border-bottom: 1px solid #222; padding: 2mm 1mm; }
table.items td { border-bottom: 1px solid #ddd; padding: 2mm 1mm; vertical-align: top; }
.num { text-align: right; white-space: nowrap; }
table.totals { margin-left: auto; margin-top: 6mm; }
table.totals td { padding: 1mm 2mm; }
table.totals tr.gross td { font-weight: bold; border-top: 1px solid #222; }
.note { margin-top: 8mm; }
</style>
</head>
<body>
<div class="sender">{{.Company.Name}}{{range .Company.Address.Lines}} · {{.}}{{end}}</div>
<div class="head">
  <div class="recipient">
    <strong>{{.Contact.Name}}</strong><br>
    {{if .Contact.ContactPerson}}{{.Contact.ContactPerson}}<br>{{end}}
    {{range .Contact.Address.Lines}}{{.}}<br>{{end}}
    {{if .Contact.VATID}}USt-IdNr.: {{.Contact.VATID}}{{end}}
  </div>
  <table class="meta">
    <tr><td>Rechnungsnummer</td><td>{{.Invoice.Number}}</td></tr>
    <tr><td>Rechnungsdatum</td><td>{{date .Invoice.IssueDate}}</td></tr>
    <tr><td>Fällig am</td><td>{{date .Invoice.DueDate}}</td></tr>
    {{if .Invoice.ServicePeriodStart}}<tr><td>Leistungszeitraum</td><td>{{optdate .Invoice.ServicePeriodStart}} – {{optdate .Invoice.ServicePeriodEnd}}</td></tr>{{end}}
    {{if .Contact.CustomerNumber}}<tr><td>Kundennummer</td><td>{{.Contact.CustomerNumber}}</td></tr>{{end}}
  </table>
</div>

<h1>Rechnung {{.Invoice.Number}}</h1>

<table class="items">
  <thead>
    <tr><th>Pos.</th><th>Beschreibung</th><th class="num">Menge</th><th>Einheit</th><th class="num">Einzelpreis</th><th class="num">Rabatt</th><th class="num">USt.</th><th class="num">Netto</th></tr>
  </thead>
  <tbody>
  {{range .Invoice.Items}}
    <tr>
      <td>{{.Position}}</td>
      <td>{{.Description}}</td>
      <td class="num">{{qty .Quantity}}</td>
      <td>{{.Unit}}</td>
      <td class="num">{{money .UnitPrice}}</td>
      <td class="num">{{if nonzero .DiscountPercent}}{{qty .DiscountPercent}} %{{end}}</td>
      <td class="num">{{rate .VATRate}}</td>
      <td class="num">{{money .NetAmount}}</td>
    </tr>
  {{end}}
  </tbody>
</table>

<table class="totals">
  <tr><td>Summe netto</td><td class="num">{{money .Invoice.NetAmount}}</td></tr>
  {{range .Totals.Groups}}{{if nonzero .Tax}}<tr><td>zzgl. USt. {{rate .Rate}} auf {{money .Net}}</td><td class="num">{{money .Tax}}</td></tr>{{end}}{{end}}
  <tr class="gross"><td>Rechnungsbetrag</td><td class="num">{{money .Invoice.GrossAmount}}</td></tr>
</table>

{{if .Invoice.SmallBusiness}}<p class="note">Gemäß § 19 UStG wird keine Umsatzsteuer berechnet.</p>{{end}}
{{if .Invoice.ReverseCharge}}<p class="note">Steuerschuldnerschaft des Leistungsempfängers (Reverse Charge).</p>{{end}}
{{if .Invoice.PaymentTerms}}<p class="note">{{.Invoice.PaymentTerms}}</p>{{else}}<p class="note">Bitte überweisen Sie den Rechnungsbetrag bis zum {{date .Invoice.DueDate}} unter Angabe der Rechnungsnummer.</p>{{end}}
{{if .Invoice.Notes}}<p class="note">{{.Invoice.Notes}}</p>{{end}}
</body>
</html>`))

var footerTemplate = template.Must(template.New("footer").Funcs(invoiceFuncs).Parse(
	`<div style="font-size:7pt;width:100%;padding:0 20mm;color:#666;display:flex;justify-content:space-between;">` +
		`<span>{{.Name}}{{if .Tax.TaxNumber}} · St.-Nr. {{.Tax.TaxNumber}}{{end}}{{if .Tax.VATID}} · USt-IdNr. {{.Tax.VATID}}{{end}}</span>` +
		`<span>{{if .IBAN}}IBAN {{iban .IBAN}}{{end}}{{if .BIC}} · BIC {{.BIC}}{{end}}</span>` +
		`<span>Seite <span class="pageNumber"></span>/<span class="totalPages"></span></span></div>`))

type invoiceView struct {
	InvoiceDocument
	Totals invoice.Totals
}

// InvoiceHTML renders the invoice body
func InvoiceHTML(doc InvoiceDocument) (string, error) {
	if doc.Invoice == nil || doc.Company == nil || doc.Contact == nil {
		return "", NewRenderError(ErrCodeTemplate, "invoice, company and contact are required", nil)
	}
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, invoiceView{InvoiceDocument: doc, Totals: doc.Invoice.Totals()}); err != nil {
		return "", NewRenderError(ErrCodeTemplate, "failed to render invoice template", err)
	}
	return buf.String(), nil
}

func invoiceFooter(c *company.Company) (string, error) {
	var buf bytes.Buffer
	if err := footerTemplate.Execute(&buf, c); err != nil {
		return "", NewRenderError(ErrCodeTemplate, "failed to render footer template", err)
	}
	return buf.String(), nil
}

// InvoiceRenderer produces invoice PDFs
type InvoiceRenderer struct {
	html HTMLRenderer
}

// NewInvoiceRenderer wraps an HTML renderer
func NewInvoiceRenderer(html HTMLRenderer) *InvoiceRenderer {
	return &InvoiceRenderer{html: html}
}

// RenderInvoice renders the invoice document to PDF bytes
func (r *InvoiceRenderer) RenderInvoice(ctx context.Context, doc InvoiceDocument) ([]byte, error) {
	body, err := InvoiceHTML(doc)
	if err != nil {
		return nil, err
	}
	footer, err := invoiceFooter(doc.Company)
	if err != nil {
		return nil, err
	}
	return r.html.Render(ctx, &RenderRequest{
		HTML:       body,
		Title:      "Rechnung " + doc.Invoice.Number,
		Margins:    DefaultMargins(),
		FooterHTML: footer,
	})
}

// Close releases the underlying renderer
func (r *InvoiceRenderer) Close() error {
	return r.html.Close()
}

package invoice

import (
	"strings"

	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineItem is one position on an invoice
type LineItem struct {
	Position        int                 `json:"position"`
	Description     string              `json:"description"`
	Quantity        decimal.Decimal     `json:"quantity"`
	Unit            string              `json:"unit"`
	UnitPrice       decimal.Decimal     `json:"unit_price"`
	VATRate         valueobject.VATRate `json:"vat_rate"`
	DiscountPercent decimal.Decimal     `json:"discount_percent"`
	NetAmount       decimal.Decimal     `json:"net_amount"`
	TaxAmount       decimal.Decimal     `json:"tax_amount"`
	GrossAmount     decimal.Decimal     `json:"gross_amount"`
}

// LineItemInput is the caller-supplied part of a line item
type LineItemInput struct {
	Description     string
	Quantity        decimal.Decimal
	Unit            string
	UnitPrice       decimal.Decimal
	VATRate         valueobject.VATRate
	DiscountPercent decimal.Decimal
}

// NewLineItem validates the input and computes the line net amount
func NewLineItem(position int, in LineItemInput) (LineItem, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return LineItem{}, shared.NewDomainError("INVALID_LINE_ITEM", "Line item description cannot be empty")
	}
	if !in.Quantity.IsPositive() {
		return LineItem{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be greater than zero")
	}
	if in.UnitPrice.IsNegative() {
		return LineItem{}, shared.NewDomainError("INVALID_UNIT_PRICE", "Unit price cannot be negative")
	}
	if !in.VATRate.IsValid() {
		return LineItem{}, shared.NewDomainError("INVALID_VAT_RATE", "VAT rate must be 0, 7 or 19 percent")
	}
	if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred) {
		return LineItem{}, shared.NewDomainError("INVALID_DISCOUNT", "Discount must be between 0 and 100 percent")
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = "Stk"
	}

	item := LineItem{
		Position:        position,
		Description:     desc,
		Quantity:        in.Quantity,
		Unit:            unit,
		UnitPrice:       in.UnitPrice,
		VATRate:         in.VATRate,
		DiscountPercent: in.DiscountPercent,
	}
	item.NetAmount = LineNet(in.Quantity, in.UnitPrice, in.DiscountPercent)
	return item, nil
}

// LineNet returns round2(quantity × unit price × (1 − discount/100))
func LineNet(quantity, unitPrice, discountPercent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(discountPercent.Div(hundred))
	return valueobject.RoundCents(quantity.Mul(unitPrice).Mul(factor))
}

package billing

import (
	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/shopspring/decimal"
)

// LineInput is one line item as supplied by the caller.
type LineInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	SortOrder   int
}

// LineTotal is a computed line with its derived tax share.
type LineTotal struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	TaxAmount   decimal.Decimal
	Total       decimal.Decimal
	SortOrder   int
}

// Totals is the monetary aggregate of a document.
type Totals struct {
	Subtotal       decimal.Decimal
	TaxRate        decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	Lines          []LineTotal
}

var oneHundred = decimal.NewFromInt(100)

// Calculate computes document totals from line items under the single
// document-level tax policy: tax = subtotal * rate/100, and each line's
// stored tax is derived from the same document rate so line totals and
// the aggregate stay in display parity. The discount is clamped to
// [0, subtotal+tax] and the grand total is never negative. All amounts
// are rounded to 2 decimal places.
func Calculate(items []LineInput, taxRate decimal.Decimal, discountType enum.DiscountType, discountValue decimal.Decimal) Totals {
	subtotal := decimal.Zero
	lines := make([]LineTotal, 0, len(items))

	for _, item := range items {
		lineAmount := item.Quantity.Mul(item.UnitPrice).Round(2)
		lineTax := lineAmount.Mul(taxRate).Div(oneHundred).Round(2)
		subtotal = subtotal.Add(lineAmount)

		lines = append(lines, LineTotal{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxRate:     taxRate,
			TaxAmount:   lineTax,
			Total:       lineAmount.Add(lineTax),
			SortOrder:   item.SortOrder,
		})
	}

	taxAmount := subtotal.Mul(taxRate).Div(oneHundred).Round(2)

	var discountAmount decimal.Decimal
	if discountType == enum.DiscountTypeFixed {
		discountAmount = discountValue
	} else {
		discountAmount = subtotal.Mul(discountValue).Div(oneHundred).Round(2)
	}

	// Clamp the discount so the total can never go negative
	if discountAmount.IsNegative() {
		discountAmount = decimal.Zero
	}
	if max := subtotal.Add(taxAmount); discountAmount.GreaterThan(max) {
		discountAmount = max
	}

	total := subtotal.Add(taxAmount).Sub(discountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:       subtotal,
		TaxRate:        taxRate,
		TaxAmount:      taxAmount,
		DiscountAmount: discountAmount,
		Total:          total,
		Lines:          lines,
	}
}

// AmountDue derives the open balance of a document: max(0, total - paid).
func AmountDue(total, amountPaid decimal.Decimal) decimal.Decimal {
	due := total.Sub(amountPaid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

package renderer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
)

// LineItem is one row of a rendered document.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// DocumentData carries everything needed to render an invoice or estimate.
// The service layer maps entities into this shape so the renderer stays
// independent of the persistence model.
type DocumentData struct {
	Kind           string // "Invoice" or "Estimate"
	Number         string
	Status         string
	Currency       string
	IssueDate      string
	DueDate        string
	BusinessName   string
	BusinessEmail  string
	BusinessPhone  string
	BusinessAddr   string
	ContactName    string
	ContactEmail   string
	ContactAddr    string
	Items          []LineItem
	Subtotal       decimal.Decimal
	TaxLabel       string
	TaxRate        decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	AmountPaid     decimal.Decimal
	AmountDue      decimal.Decimal
	Notes          string
	Terms          string
	Footer         string
}

// DocumentRenderer produces a printable representation of a document.
type DocumentRenderer interface {
	// Render returns the document as a byte stream plus its file name.
	Render(data DocumentData) ([]byte, string, error)
}

// HTMLRenderer renders documents as standalone HTML files.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer creates a renderer using the built-in document template.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.New("document").Parse(documentTemplate)
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to parse template: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

// Render executes the document template against the given data.
func (r *HTMLRenderer) Render(data DocumentData) ([]byte, string, error) {
	if data.TaxLabel == "" {
		data.TaxLabel = "Tax"
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, "", fmt.Errorf("renderer: failed to render %s: %w", data.Number, err)
	}

	return buf.Bytes(), data.Number + ".html", nil
}

// documentTemplate is the HTML layout shared by invoices and estimates
const documentTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Kind}} {{.Number}}</title>
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; color: #1a1a2e; margin: 0; padding: 40px; }
        .header { display: flex; justify-content: space-between; margin-bottom: 40px; }
        .title { font-size: 28px; font-weight: 600; }
        .meta { text-align: right; color: #4a5568; font-size: 14px; }
        .parties { display: flex; justify-content: space-between; margin-bottom: 40px; font-size: 14px; }
        .label { color: #718096; text-transform: uppercase; font-size: 12px; margin-bottom: 6px; }
        table.items { width: 100%; border-collapse: collapse; margin-bottom: 30px; }
        table.items th { text-align: left; color: #718096; font-size: 12px; text-transform: uppercase; border-bottom: 2px solid #e2e8f0; padding: 8px; }
        table.items td { padding: 10px 8px; border-bottom: 1px solid #e2e8f0; font-size: 14px; }
        table.items .num { text-align: right; }
        .totals { width: 320px; margin-left: auto; font-size: 14px; }
        .totals .row { display: flex; justify-content: space-between; padding: 6px 8px; }
        .totals .grand { font-weight: 600; font-size: 16px; border-top: 2px solid #1a1a2e; }
        .due { color: #c53030; font-weight: 600; }
        .notes { margin-top: 40px; color: #4a5568; font-size: 13px; white-space: pre-line; }
        .footer { margin-top: 40px; color: #a0aec0; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <div>
            <div class="title">{{.Kind}}</div>
            <div class="meta" style="text-align:left">{{.Number}}</div>
        </div>
        <div class="meta">
            <div>Issued: {{.IssueDate}}</div>
            <div>Due: {{.DueDate}}</div>
            <div>Status: {{.Status}}</div>
        </div>
    </div>

    <div class="parties">
        <div>
            <div class="label">From</div>
            <div><strong>{{.BusinessName}}</strong></div>
            {{if .BusinessAddr}}<div>{{.BusinessAddr}}</div>{{end}}
            {{if .BusinessEmail}}<div>{{.BusinessEmail}}</div>{{end}}
            {{if .BusinessPhone}}<div>{{.BusinessPhone}}</div>{{end}}
        </div>
        <div>
            <div class="label">Bill To</div>
            <div><strong>{{.ContactName}}</strong></div>
            {{if .ContactAddr}}<div>{{.ContactAddr}}</div>{{end}}
            {{if .ContactEmail}}<div>{{.ContactEmail}}</div>{{end}}
        </div>
    </div>

    <table class="items">
        <thead>
            <tr>
                <th>Description</th>
                <th class="num">Qty</th>
                <th class="num">Unit Price</th>
                <th class="num">Amount</th>
            </tr>
        </thead>
        <tbody>
            {{range .Items}}
            <tr>
                <td>{{.Description}}</td>
                <td class="num">{{.Quantity}}</td>
                <td class="num">{{.UnitPrice}}</td>
                <td class="num">{{.Total}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <div class="row"><span>Subtotal</span><span>{{.Subtotal}} {{.Currency}}</span></div>
        {{if not .TaxAmount.IsZero}}<div class="row"><span>{{.TaxLabel}} ({{.TaxRate}}%)</span><span>{{.TaxAmount}} {{.Currency}}</span></div>{{end}}
        {{if not .DiscountAmount.IsZero}}<div class="row"><span>Discount</span><span>-{{.DiscountAmount}} {{.Currency}}</span></div>{{end}}
        <div class="row grand"><span>Total</span><span>{{.Total}} {{.Currency}}</span></div>
        {{if not .AmountPaid.IsZero}}
        <div class="row"><span>Paid</span><span>{{.AmountPaid}} {{.Currency}}</span></div>
        <div class="row due"><span>Amount Due</span><span>{{.AmountDue}} {{.Currency}}</span></div>
        {{end}}
    </div>

    {{if .Notes}}<div class="notes"><div class="label">Notes</div>{{.Notes}}</div>{{end}}
    {{if .Terms}}<div class="notes"><div class="label">Terms</div>{{.Terms}}</div>{{end}}
    {{if .Footer}}<div class="footer">{{.Footer}}</div>{{end}}
</body>
</html>
`

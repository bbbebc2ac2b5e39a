package billing

import (
	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/shopspring/decimal"
)

// The lifecycle rules live here so every caller enforces the same
// transition table instead of re-deriving allowed statuses per route.

// CanEdit reports whether an invoice's financial fields and items may
// still change. Once a document is partially paid, paid or cancelled its
// financial facts are frozen.
func CanEdit(status enum.InvoiceStatus) bool {
	return status == enum.InvoiceStatusDraft || status == enum.InvoiceStatusSent
}

// CanSend reports whether an invoice may be (re)sent. A first send is
// only allowed from draft or sent; resend covers every non-terminal state
// that has already been issued.
func CanSend(status enum.InvoiceStatus, resend bool) bool {
	switch status {
	case enum.InvoiceStatusDraft, enum.InvoiceStatusSent:
		return true
	case enum.InvoiceStatusViewed, enum.InvoiceStatusPartial, enum.InvoiceStatusOverdue:
		return resend
	}
	return false
}

// CanDelete reports whether an invoice may be deleted. Only drafts
// without payments qualify; anything issued stays for the audit trail.
func CanDelete(status enum.InvoiceStatus, hasPayments bool) bool {
	return status == enum.InvoiceStatusDraft && !hasPayments
}

// CanApplyPayment reports whether a payment may be applied: any
// non-terminal status with an open balance.
func CanApplyPayment(status enum.InvoiceStatus, amountDue decimal.Decimal) bool {
	return !status.IsTerminal() && amountDue.IsPositive()
}

// CanCancel reports whether an invoice may be cancelled. Paid invoices
// cannot; a cancellation of a partially paid invoice keeps its payments.
func CanCancel(status enum.InvoiceStatus) bool {
	return !status.IsTerminal()
}

// CanMarkViewed reports whether the viewed stamp applies. Only a sent
// invoice flips to viewed; later states already imply it.
func CanMarkViewed(status enum.InvoiceStatus) bool {
	return status == enum.InvoiceStatusSent
}

// CanMarkOverdue reports whether the overdue sweep may flip this status.
// Partial stays partial past the due date so the balance invariant
// (0 < paid < total implies partial) keeps holding.
func CanMarkOverdue(status enum.InvoiceStatus) bool {
	return status == enum.InvoiceStatusSent || status == enum.InvoiceStatusViewed
}

// StatusAfterPayment derives the status that follows a successful
// payment application.
func StatusAfterPayment(amountDue decimal.Decimal) enum.InvoiceStatus {
	if amountDue.IsZero() {
		return enum.InvoiceStatusPaid
	}
	return enum.InvoiceStatusPartial
}

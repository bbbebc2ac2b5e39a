package enum

// DocumentKind identifies which numbered document a sequence row serves.
type DocumentKind string

const (
	DocumentKindInvoice  DocumentKind = "invoice"
	DocumentKindEstimate DocumentKind = "estimate"
)

func (k DocumentKind) String() string {
	return string(k)
}

// DefaultPrefix returns the number prefix used when a tenant has not
// configured one.
func (k DocumentKind) DefaultPrefix() string {
	if k == DocumentKindEstimate {
		return "EST-"
	}
	return "INV-"
}

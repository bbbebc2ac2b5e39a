package enum

// DiscountType represents how a document-level discount is expressed.
type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeFixed   DiscountType = "fixed"
)

func (d DiscountType) String() string {
	return string(d)
}

// Valid reports whether d is a known discount type.
func (d DiscountType) Valid() bool {
	return d == DiscountTypePercent || d == DiscountTypeFixed
}

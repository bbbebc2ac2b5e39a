package enum

// EstimateStatus represents the lifecycle status of an estimate.
type EstimateStatus string

const (
	EstimateStatusDraft    EstimateStatus = "draft"
	EstimateStatusSent     EstimateStatus = "sent"
	EstimateStatusAccepted EstimateStatus = "accepted"
	EstimateStatusDeclined EstimateStatus = "declined"
	EstimateStatusExpired  EstimateStatus = "expired"
)

func (s EstimateStatus) String() string {
	return string(s)
}

// Valid reports whether s is a known estimate status.
func (s EstimateStatus) Valid() bool {
	switch s {
	case EstimateStatusDraft, EstimateStatusSent, EstimateStatusAccepted,
		EstimateStatusDeclined, EstimateStatusExpired:
		return true
	}
	return false
}

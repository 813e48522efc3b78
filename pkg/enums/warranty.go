package enums

import "slices"

// WarrantyKind identifies which binding table a warranty claim points at.
type WarrantyKind string

const (
	WarrantyKindService  WarrantyKind = "service"
	WarrantyKindDelivery WarrantyKind = "delivery"
)

var validWarrantyKinds = []WarrantyKind{
	WarrantyKindService,
	WarrantyKindDelivery,
}

// IsValid reports whether the value is a known WarrantyKind.
func (k WarrantyKind) IsValid() bool {
	return slices.Contains(validWarrantyKinds, k)
}

// ParseWarrantyKind converts raw input into a WarrantyKind.
func ParseWarrantyKind(value string) (WarrantyKind, error) {
	return parse("warranty kind", value, validWarrantyKinds)
}

// WarrantyClaimStatus has a single state: warranty claims carry no review workflow.
type WarrantyClaimStatus string

const WarrantyClaimStatusSubmitted WarrantyClaimStatus = "SUBMITTED"

// IsValid reports whether the value is a known WarrantyClaimStatus.
func (s WarrantyClaimStatus) IsValid() bool {
	return s == WarrantyClaimStatusSubmitted
}

package enums

import "slices"

// NumberKind selects the human-readable number series a sequence belongs to.
type NumberKind string

const (
	NumberKindPolicy        NumberKind = "POLICY"
	NumberKindClaim         NumberKind = "CLAIM"
	NumberKindWarrantyClaim NumberKind = "WARRANTY_CLAIM"
)

var validNumberKinds = []NumberKind{
	NumberKindPolicy,
	NumberKindClaim,
	NumberKindWarrantyClaim,
}

// IsValid reports whether the value is a known NumberKind.
func (k NumberKind) IsValid() bool {
	return slices.Contains(validNumberKinds, k)
}

// ParseNumberKind converts raw input into a NumberKind.
func ParseNumberKind(value string) (NumberKind, error) {
	return parse("number kind", value, validNumberKinds)
}

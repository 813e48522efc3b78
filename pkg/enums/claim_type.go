package enums

import "slices"

// ClaimType classifies the declared loss.
type ClaimType string

const (
	ClaimTypeDamage    ClaimType = "DAMAGE"
	ClaimTypeLoss      ClaimType = "LOSS"
	ClaimTypeTheft     ClaimType = "THEFT"
	ClaimTypeDelay     ClaimType = "DELAY"
	ClaimTypeLiability ClaimType = "LIABILITY"
	ClaimTypeInjury    ClaimType = "INJURY"
	ClaimTypeOther     ClaimType = "OTHER"
)

var validClaimTypes = []ClaimType{
	ClaimTypeDamage,
	ClaimTypeLoss,
	ClaimTypeTheft,
	ClaimTypeDelay,
	ClaimTypeLiability,
	ClaimTypeInjury,
	ClaimTypeOther,
}

// IsValid reports whether the value is a known ClaimType.
func (t ClaimType) IsValid() bool {
	return slices.Contains(validClaimTypes, t)
}

// ParseClaimType converts raw input into a ClaimType.
func ParseClaimType(value string) (ClaimType, error) {
	return parse("claim type", value, validClaimTypes)
}

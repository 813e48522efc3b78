package enums

import "slices"

// CoverageType is the kind of risk a coverage ceiling applies to.
type CoverageType string

const (
	CoverageTypeDamage    CoverageType = "DAMAGE_COVERAGE"
	CoverageTypeLoss      CoverageType = "LOSS_COVERAGE"
	CoverageTypeTheft     CoverageType = "THEFT_COVERAGE"
	CoverageTypeDelay     CoverageType = "DELAY_COVERAGE"
	CoverageTypeLiability CoverageType = "LIABILITY_COVERAGE"
)

var validCoverageTypes = []CoverageType{
	CoverageTypeDamage,
	CoverageTypeLoss,
	CoverageTypeTheft,
	CoverageTypeDelay,
	CoverageTypeLiability,
}

// IsValid reports whether the value is a known CoverageType.
func (t CoverageType) IsValid() bool {
	return slices.Contains(validCoverageTypes, t)
}

// ParseCoverageType converts raw input into a CoverageType.
func ParseCoverageType(value string) (CoverageType, error) {
	return parse("coverage type", value, validCoverageTypes)
}

// CoveredEntityType is the kind of job a coverage or warranty is bound to.
type CoveredEntityType string

const (
	CoveredEntityDelivery CoveredEntityType = "delivery"
	CoveredEntityService  CoveredEntityType = "service"
)

var validCoveredEntityTypes = []CoveredEntityType{
	CoveredEntityDelivery,
	CoveredEntityService,
}

// IsValid reports whether the value is a known CoveredEntityType.
func (t CoveredEntityType) IsValid() bool {
	return slices.Contains(validCoveredEntityTypes, t)
}

// ParseCoveredEntityType converts raw input into a CoveredEntityType.
func ParseCoveredEntityType(value string) (CoveredEntityType, error) {
	return parse("covered entity type", value, validCoveredEntityTypes)
}

package enums

import "slices"

// RiskLevel is the four-point bucket derived from a numeric risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

var validRiskLevels = []RiskLevel{
	RiskLevelLow,
	RiskLevelMedium,
	RiskLevelHigh,
	RiskLevelCritical,
}

func (l RiskLevel) String() string {
	return string(l)
}

// IsValid reports whether the value is a known RiskLevel.
func (l RiskLevel) IsValid() bool {
	return slices.Contains(validRiskLevels, l)
}

// ParseRiskLevel converts raw input into a RiskLevel.
func ParseRiskLevel(value string) (RiskLevel, error) {
	return parse("risk level", value, validRiskLevels)
}

// RiskEntityType is the kind of entity a risk assessment describes.
type RiskEntityType string

const (
	RiskEntityUser     RiskEntityType = "user"
	RiskEntityDelivery RiskEntityType = "delivery"
	RiskEntityService  RiskEntityType = "service"
)

var validRiskEntityTypes = []RiskEntityType{
	RiskEntityUser,
	RiskEntityDelivery,
	RiskEntityService,
}

// IsValid reports whether the value is a known RiskEntityType.
func (t RiskEntityType) IsValid() bool {
	return slices.Contains(validRiskEntityTypes, t)
}

// ParseRiskEntityType converts raw input into a RiskEntityType.
func ParseRiskEntityType(value string) (RiskEntityType, error) {
	return parse("risk entity type", value, validRiskEntityTypes)
}

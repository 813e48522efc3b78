package enums

import "slices"

// PolicyCategory groups insurance products; coverage allocation looks policies up by category.
type PolicyCategory string

const (
	PolicyCategoryGoodsTransport        PolicyCategory = "GOODS_TRANSPORT"
	PolicyCategoryProfessionalLiability PolicyCategory = "PROFESSIONAL_LIABILITY"
	PolicyCategoryPublicLiability       PolicyCategory = "PUBLIC_LIABILITY"
	PolicyCategoryVehicle               PolicyCategory = "VEHICLE"
	PolicyCategoryPersonalAccident      PolicyCategory = "PERSONAL_ACCIDENT"
)

var validPolicyCategories = []PolicyCategory{
	PolicyCategoryGoodsTransport,
	PolicyCategoryProfessionalLiability,
	PolicyCategoryPublicLiability,
	PolicyCategoryVehicle,
	PolicyCategoryPersonalAccident,
}

// String implements fmt.Stringer.
func (c PolicyCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known PolicyCategory.
func (c PolicyCategory) IsValid() bool {
	return slices.Contains(validPolicyCategories, c)
}

// ParsePolicyCategory converts raw input into a PolicyCategory.
func ParsePolicyCategory(value string) (PolicyCategory, error) {
	return parse("policy category", value, validPolicyCategories)
}

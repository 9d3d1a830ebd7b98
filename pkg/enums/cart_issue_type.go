package enums

// CartIssueType classifies problems reported by cart validation.
type CartIssueType string

const (
	CartIssuePriceChanged      CartIssueType = "price-changed"
	CartIssueInsufficientStock CartIssueType = "insufficient-stock"
	CartIssueProductRemoved    CartIssueType = "product-removed"
)

var validCartIssueTypes = values[CartIssueType]{
	CartIssuePriceChanged,
	CartIssueInsufficientStock,
	CartIssueProductRemoved,
}

// String implements fmt.Stringer.
func (c CartIssueType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartIssueType.
func (c CartIssueType) IsValid() bool {
	return validCartIssueTypes.has(c)
}

// ParseCartIssueType converts raw input into a CartIssueType.
func ParseCartIssueType(value string) (CartIssueType, error) {
	return validCartIssueTypes.parse(value, "cart issue type")
}

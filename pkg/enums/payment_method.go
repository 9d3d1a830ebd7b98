package enums

// PaymentMethod describes how a customer intends to settle an order.
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCashOnPickup PaymentMethod = "cash_on_pickup"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodManual       PaymentMethod = "manual"
)

var validPaymentMethods = values[PaymentMethod]{
	PaymentMethodCard,
	PaymentMethodCashOnPickup,
	PaymentMethodBankTransfer,
	PaymentMethodManual,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	return validPaymentMethods.has(p)
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return validPaymentMethods.parse(value, "payment method")
}

package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Discount returns the discount amount the rule yields for the given cart
// subtotal. Flat rules discount their fixed value; percentage rules discount
// subtotal * value / 100. The amount may exceed the subtotal (a percentage
// value above 100, or a flat value larger than the cart); callers floor the
// resulting total at zero.
func Discount(rule *Rule, subtotal decimal.Decimal) decimal.Decimal {
	switch rule.DiscountType {
	case DiscountFlat:
		return rule.Value.Round(2)
	case DiscountPercentage:
		return subtotal.Mul(rule.Value).Div(hundred).Round(2)
	default:
		return decimal.Zero
	}
}

// ApplyTo subtracts the rule's discount from subtotal, flooring at zero.
func ApplyTo(rule *Rule, subtotal decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(Discount(rule, subtotal))
	if total.IsNegative() {
		return decimal.Zero
	}
	return total.Round(2)
}

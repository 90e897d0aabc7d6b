package orders

import "github.com/shopspring/decimal"

// Pricing is the delivery fee policy.
type Pricing struct {
	FreeDeliveryThreshold decimal.Decimal
	CourierFee            decimal.Decimal
	TransportFee          decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		FreeDeliveryThreshold: decimal.NewFromInt(3000),
		CourierFee:            decimal.NewFromInt(500),
		TransportFee:          decimal.NewFromInt(1000),
	}
}

func (p Pricing) DeliveryFee(t DeliveryType, subtotal decimal.Decimal) decimal.Decimal {
	switch t {
	case DeliveryCourier:
		if subtotal.GreaterThanOrEqual(p.FreeDeliveryThreshold) {
			return decimal.Zero
		}
		return p.CourierFee
	case DeliveryTransport:
		return p.TransportFee
	}
	return decimal.Zero
}

// Discount is always zero until promo codes exist; the field is persisted regardless.
func (p Pricing) Discount(promoCode string, subtotal decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

package services

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	defaultTaxRate               = "0.15"
	defaultFreeShippingThreshold = 10000
	defaultFlatShippingFee       = 1000
)

// PricingConfig holds the shop-wide price rules. Amounts are in minor units.
type PricingConfig struct {
	Currency              string
	TaxRate               string
	FreeShippingThreshold int64
	FlatShippingFee       int64
}

// Pricing computes order price breakdowns.
type Pricing struct {
	currency      string
	taxRate       decimal.Decimal
	freeThreshold int64
	flatFee       int64
}

// NewPricing validates the configuration and applies defaults for unset values.
func NewPricing(cfg PricingConfig) (Pricing, error) {
	code := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if code == "" {
		code = "USD"
	}
	if _, err := currency.ParseISO(code); err != nil {
		return Pricing{}, fmt.Errorf("pricing: currency %q: %w", code, err)
	}

	rateText := strings.TrimSpace(cfg.TaxRate)
	if rateText == "" {
		rateText = defaultTaxRate
	}
	rate, err := decimal.NewFromString(rateText)
	if err != nil {
		return Pricing{}, fmt.Errorf("pricing: tax rate %q: %w", rateText, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Pricing{}, fmt.Errorf("pricing: tax rate %s must be in [0, 1)", rate)
	}

	p := Pricing{
		currency:      code,
		taxRate:       rate,
		freeThreshold: cfg.FreeShippingThreshold,
		flatFee:       cfg.FlatShippingFee,
	}
	if p.freeThreshold <= 0 {
		p.freeThreshold = defaultFreeShippingThreshold
	}
	if p.flatFee < 0 {
		return Pricing{}, fmt.Errorf("pricing: flat shipping fee must not be negative")
	}
	if cfg.FlatShippingFee == 0 {
		p.flatFee = defaultFlatShippingFee
	}
	return p, nil
}

// Currency returns the ISO 4217 code prices are expressed in.
func (p Pricing) Currency() string { return p.currency }

// Breakdown prices the line items. Shipping is waived once the item total exceeds the free
// shipping threshold; tax is rounded half up to the minor unit.
func (p Pricing) Breakdown(items []OrderLineItem) PriceBreakdown {
	itemsTotal := lo.SumBy(items, func(item OrderLineItem) int64 { return item.Subtotal() })

	shipping := p.flatFee
	if itemsTotal > p.freeThreshold {
		shipping = 0
	}
	tax := decimal.NewFromInt(itemsTotal).Mul(p.taxRate).Round(0).IntPart()

	return PriceBreakdown{
		Items:    itemsTotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    itemsTotal + shipping + tax,
	}
}

// FormatMoney renders a minor-unit amount with its currency code: 129900 USD becomes "USD 1299.00".
func FormatMoney(amount int64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%d %s", amount, code)
	}
	scale, _ := currency.Standard.Rounding(unit)
	value := decimal.New(amount, -int32(scale))
	return fmt.Sprintf("%s %s", unit, value.StringFixed(int32(scale)))
}

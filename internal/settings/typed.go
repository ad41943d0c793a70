package settings

import (
	"encoding/json"

	"github.com/learnstack/coursewallet/internal/models"
	"github.com/shopspring/decimal"
)

// EnabledCouponTypes returns the coupon types accepted site-wide. When the
// setting is absent every type is enabled.
func EnabledCouponTypes() map[models.CouponType]bool {
	enabled := map[models.CouponType]bool{
		models.CouponTypeFixed:    true,
		models.CouponTypePercent:  true,
		models.CouponTypeCategory: true,
		models.CouponTypeEnrol:    true,
	}

	raw, ok := DBConfigValue(EnabledCouponTypesKey)
	if !ok || len(raw) == 0 {
		return enabled
	}
	var listed []models.CouponType
	if errUnmarshal := json.Unmarshal(raw, &listed); errUnmarshal != nil {
		return enabled
	}

	for t := range enabled {
		enabled[t] = false
	}
	for _, t := range listed {
		enabled[t] = true
	}
	return enabled
}

// CategoryBalanceEnabled reports whether category-restricted balances are on.
func CategoryBalanceEnabled() bool {
	raw, ok := DBConfigValue(CategoryBalanceEnabledKey)
	if !ok || len(raw) == 0 {
		return DefaultCategoryBalanceEnabled
	}
	var enabled bool
	if errUnmarshal := json.Unmarshal(raw, &enabled); errUnmarshal != nil {
		return DefaultCategoryBalanceEnabled
	}
	return enabled
}

// LowBalanceThreshold returns the balance below which wallets report low.
func LowBalanceThreshold() decimal.Decimal {
	fallback, _ := decimal.NewFromString(DefaultLowBalanceThreshold)
	raw, ok := DBConfigValue(LowBalanceThresholdKey)
	if !ok || len(raw) == 0 {
		return fallback
	}
	var value string
	if errUnmarshal := json.Unmarshal(raw, &value); errUnmarshal != nil {
		return fallback
	}
	parsed, errParse := decimal.NewFromString(value)
	if errParse != nil {
		return fallback
	}
	return parsed
}

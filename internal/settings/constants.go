package settings

// DB config keys and defaults for settings.
const (
	// EnabledCouponTypesKey lists the coupon types accepted site-wide.
	EnabledCouponTypesKey = "COUPON_ENABLED_TYPES"
	// CategoryBalanceEnabledKey toggles category-restricted balances.
	CategoryBalanceEnabledKey = "CATEGORY_BALANCE_ENABLED"
	// LowBalanceThresholdKey sets the balance below which wallets report low.
	LowBalanceThresholdKey = "LOW_BALANCE_THRESHOLD"
	// DefaultCategoryBalanceEnabled enables category balances by default.
	DefaultCategoryBalanceEnabled = true
	// DefaultLowBalanceThreshold is the fallback low-balance threshold.
	DefaultLowBalanceThreshold = "0"
)

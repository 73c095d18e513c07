package fees

import (
	"github.com/dohaki/across-api/internal/bridge"
	"github.com/dohaki/across-api/internal/money"
)

// Deposit limit targets, denominated in USD cents. Limits are converted
// to token base units with the token's reference price, so a $1 minimum
// is 1000000 units of USDC but 500000000000000 wei of WETH.
const (
	minDepositUSDCents           int64 = 100         // $1
	maxDepositUSDCents           int64 = 100_000_000 // $1M
	maxDepositInstantUSDCents    int64 = 2_500_000   // $25k
	maxDepositShortDelayUSDCents int64 = 10_000_000  // $100k
	recommendedInstantUSDCents   int64 = 500_000     // $5k
)

// DepositLimits are the deposit bounds for one token, in token base
// units. Values are decimal strings: amounts routinely exceed the int64
// range for 18-decimal tokens and must round-trip through JSON without
// losing precision.
type DepositLimits struct {
	MinDeposit                string `json:"minDeposit"`
	MaxDeposit                string `json:"maxDeposit"`
	MaxDepositInstant         string `json:"maxDepositInstant"`
	MaxDepositShortDelay      string `json:"maxDepositShortDelay"`
	RecommendedDepositInstant string `json:"recommendedDepositInstant"`
}

// LimitsFor converts the USD limit targets into base units of the given
// token.
func LimitsFor(token bridge.Token) DepositLimits {
	units := func(usdCents int64) string {
		return money.TokenUnits(usdCents, token.PriceUSDCents, token.Decimals).String()
	}
	return DepositLimits{
		MinDeposit:                units(minDepositUSDCents),
		MaxDeposit:                units(maxDepositUSDCents),
		MaxDepositInstant:         units(maxDepositInstantUSDCents),
		MaxDepositShortDelay:      units(maxDepositShortDelayUSDCents),
		RecommendedDepositInstant: units(recommendedInstantUSDCents),
	}
}

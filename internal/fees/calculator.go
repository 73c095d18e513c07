// Package fees computes mock bridge fee quotes and deposit limits for
// supported routes, with deterministic big-integer math so identical
// inputs always produce identical wire output.
package fees

import (
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/dohaki/across-api/internal/bridge"
	"github.com/dohaki/across-api/internal/money"
)

// ErrInvalidAmount is returned when a quote is requested for a nil,
// zero or negative amount.
var ErrInvalidAmount = errors.New("fees: amount must be positive")

// Mock quote block anchor: blocks are derived from the quote timestamp
// assuming a fixed 12 second cadence from this reference point.
const (
	anchorBlock    uint64 = 19_500_000
	anchorUnix     int64  = 1_711_000_000
	blockIntervalS int64  = 12
)

// Schedule is the fee schedule the calculator prices against. All fee
// rates are expressed in basis points of the deposit amount; gas costs
// are flat USD amounts converted into token units per quote.
type Schedule struct {
	// LPFeeBPS is the liquidity provider fee per token symbol.
	LPFeeBPS map[string]int64
	// DefaultLPFeeBPS applies to symbols missing from LPFeeBPS.
	DefaultLPFeeBPS int64
	// CapitalFeeBaseBPS is the relayer capital fee on every deposit.
	CapitalFeeBaseBPS int64
	// CapitalFeeSurchargeBPS is added on top of the base fee for
	// deposits above the instant relay limit, where relayers have to
	// commit slow-path capital.
	CapitalFeeSurchargeBPS int64
	// GasCostUSDCents is the flat destination fill cost per chain.
	GasCostUSDCents map[uint64]int64
	// DefaultGasCostUSDCents applies to chains missing from GasCostUSDCents.
	DefaultGasCostUSDCents int64
}

// DefaultSchedule returns the standard mock schedule: stablecoins are
// cheapest to pool, congested destinations cost more to fill.
func DefaultSchedule() Schedule {
	return Schedule{
		LPFeeBPS: map[string]int64{
			"USDC": 5,
			"DAI":  5,
			"WETH": 8,
			"WBTC": 10,
		},
		DefaultLPFeeBPS:        10,
		CapitalFeeBaseBPS:      3,
		CapitalFeeSurchargeBPS: 7,
		GasCostUSDCents: map[uint64]int64{
			bridge.ChainEthereum: 800,
			bridge.ChainOptimism: 40,
			bridge.ChainPolygon:  10,
			bridge.ChainBoba:     30,
			bridge.ChainArbitrum: 60,
		},
		DefaultGasCostUSDCents: 100,
	}
}

func (s Schedule) lpFeeBPS(symbol string) int64 {
	if bps, ok := s.LPFeeBPS[symbol]; ok {
		return bps
	}
	return s.DefaultLPFeeBPS
}

func (s Schedule) gasCostUSDCents(chainID uint64) int64 {
	if cents, ok := s.GasCostUSDCents[chainID]; ok {
		return cents
	}
	return s.DefaultGasCostUSDCents
}

// Quote is the fee breakdown for one deposit. Percentages are 1e18
// scaled (1e18 == 100%), totals are token base units; both are decimal
// strings because the values exceed safe JSON number range.
type Quote struct {
	CapitalFeePct    string `json:"capitalFeePct"`
	CapitalFeeTotal  string `json:"capitalFeeTotal"`
	RelayGasFeePct   string `json:"relayGasFeePct"`
	RelayGasFeeTotal string `json:"relayGasFeeTotal"`
	RelayFeePct      string `json:"relayFeePct"`
	RelayFeeTotal    string `json:"relayFeeTotal"`
	LpFeePct         string `json:"lpFeePct"`
	LpFeeTotal       string `json:"lpFeeTotal"`
	Timestamp        string `json:"timestamp"`
	IsAmountTooLow   bool   `json:"isAmountTooLow"`
	QuoteBlock       string `json:"quoteBlock"`
	SpokePoolAddress string `json:"spokePoolAddress"`
}

// Calculator prices deposits against a fixed schedule. It holds no
// mutable state, so a single instance is safe for concurrent use.
type Calculator struct {
	schedule Schedule
}

// NewCalculator creates a calculator for the given schedule.
func NewCalculator(schedule Schedule) *Calculator {
	return &Calculator{schedule: schedule}
}

// Quote computes the fee breakdown for depositing amount of token on
// the route at the given time. The route, token and origin chain are
// assumed to be registry-validated by the caller.
//
// The breakdown mirrors the relayer cost model:
//   - lpFee: flat bps per token, paid to liquidity providers
//   - capitalFee: base bps, plus a surcharge above the instant limit
//   - relayGasFee: flat destination fill cost expressed as a
//     percentage of the amount, so it dominates small deposits and
//     vanishes on large ones
//   - relayFee: capitalFee + relayGasFee
func (c *Calculator) Quote(route bridge.Route, token bridge.Token, origin bridge.Chain, amount *big.Int, at time.Time) (Quote, error) {
	if amount == nil || amount.Sign() <= 0 {
		return Quote{}, ErrInvalidAmount
	}

	lpPct := money.PctFromBPS(c.schedule.lpFeeBPS(token.Symbol))

	capitalPct := money.PctFromBPS(c.schedule.CapitalFeeBaseBPS)
	instantLimit := money.TokenUnits(maxDepositInstantUSDCents, token.PriceUSDCents, token.Decimals)
	if amount.Cmp(instantLimit) > 0 {
		capitalPct = capitalPct.Add(money.PctFromBPS(c.schedule.CapitalFeeSurchargeBPS))
	}

	gasUnits := money.TokenUnits(c.schedule.gasCostUSDCents(route.DestinationChainID), token.PriceUSDCents, token.Decimals)
	gasPct := money.PctOf(gasUnits, amount)

	relayPct := capitalPct.Add(gasPct)

	minDeposit := money.TokenUnits(minDepositUSDCents, token.PriceUSDCents, token.Decimals)

	return Quote{
		CapitalFeePct:    capitalPct.String(),
		CapitalFeeTotal:  capitalPct.ApplyTo(amount).String(),
		RelayGasFeePct:   gasPct.String(),
		RelayGasFeeTotal: gasPct.ApplyTo(amount).String(),
		RelayFeePct:      relayPct.String(),
		RelayFeeTotal:    relayPct.ApplyTo(amount).String(),
		LpFeePct:         lpPct.String(),
		LpFeeTotal:       lpPct.ApplyTo(amount).String(),
		Timestamp:        strconv.FormatInt(at.Unix(), 10),
		IsAmountTooLow:   amount.Cmp(minDeposit) < 0,
		QuoteBlock:       strconv.FormatUint(blockForTime(at), 10),
		SpokePoolAddress: origin.SpokePool,
	}, nil
}

// blockForTime maps a quote timestamp onto a mock block number with a
// fixed 12 second block time. Times before the anchor clamp to the
// anchor block.
func blockForTime(at time.Time) uint64 {
	delta := at.Unix() - anchorUnix
	if delta < 0 {
		return anchorBlock
	}
	return anchorBlock + uint64(delta/blockIntervalS)
}

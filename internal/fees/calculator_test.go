package fees

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/dohaki/across-api/internal/bridge"
)

// quoteFixture resolves the registry entries a quote needs, failing the
// test on unsupported combinations.
func quoteFixture(t *testing.T, origin, destination uint64, symbol string) (bridge.Route, bridge.Token, bridge.Chain) {
	t.Helper()
	route, err := bridge.FindRoute(origin, destination, symbol)
	if err != nil {
		t.Fatalf("FindRoute(%d, %d, %s) error: %v", origin, destination, symbol, err)
	}
	token, err := bridge.LookupToken(symbol)
	if err != nil {
		t.Fatalf("LookupToken(%s) error: %v", symbol, err)
	}
	chain, err := bridge.LookupChain(origin)
	if err != nil {
		t.Fatalf("LookupChain(%d) error: %v", origin, err)
	}
	return route, token, chain
}

func amount(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad amount literal %q", s)
	}
	return v
}

func TestCalculatorQuote(t *testing.T) {
	calc := NewCalculator(DefaultSchedule())
	at := time.Unix(anchorUnix, 0)

	tests := []struct {
		name        string
		origin      uint64
		destination uint64
		symbol      string
		amount      string
		want        Quote
	}{
		{
			// 1000 USDC to Optimism: lp 5 bps, capital 3 bps, $0.40
			// destination gas = 40 bps of the amount. Everything
			// divides evenly.
			name:        "usdc to optimism",
			origin:      bridge.ChainEthereum,
			destination: bridge.ChainOptimism,
			symbol:      "USDC",
			amount:      "1000000000",
			want: Quote{
				CapitalFeePct:    "300000000000000",
				CapitalFeeTotal:  "300000",
				RelayGasFeePct:   "400000000000000",
				RelayGasFeeTotal: "400000",
				RelayFeePct:      "700000000000000",
				RelayFeeTotal:    "700000",
				LpFeePct:         "500000000000000",
				LpFeeTotal:       "500000",
				Timestamp:        "1711000000",
				IsAmountTooLow:   false,
				QuoteBlock:       "19500000",
				SpokePoolAddress: "0x4D9079Bb4165aeb4084c526a32695dCfd2F77381",
			},
		},
		{
			// 1 WETH to Arbitrum: $0.60 gas on a $2000 deposit is
			// exactly 3 bps.
			name:        "weth to arbitrum",
			origin:      bridge.ChainEthereum,
			destination: bridge.ChainArbitrum,
			symbol:      "WETH",
			amount:      "1000000000000000000",
			want: Quote{
				CapitalFeePct:    "300000000000000",
				CapitalFeeTotal:  "300000000000000",
				RelayGasFeePct:   "300000000000000",
				RelayGasFeeTotal: "300000000000000",
				RelayFeePct:      "600000000000000",
				RelayFeeTotal:    "600000000000000",
				LpFeePct:         "800000000000000",
				LpFeeTotal:       "800000000000000",
				Timestamp:        "1711000000",
				IsAmountTooLow:   false,
				QuoteBlock:       "19500000",
				SpokePoolAddress: "0x4D9079Bb4165aeb4084c526a32695dCfd2F77381",
			},
		},
		{
			// 30000 USDC exceeds the 25000 USDC instant limit, so the
			// capital fee carries the 7 bps surcharge. The Polygon gas
			// percentage does not divide evenly and truncates.
			name:        "usdc to polygon above instant limit",
			origin:      bridge.ChainEthereum,
			destination: bridge.ChainPolygon,
			symbol:      "USDC",
			amount:      "30000000000",
			want: Quote{
				CapitalFeePct:    "1000000000000000",
				CapitalFeeTotal:  "30000000",
				RelayGasFeePct:   "3333333333333",
				RelayGasFeeTotal: "99999",
				RelayFeePct:      "1003333333333333",
				RelayFeeTotal:    "30099999",
				LpFeePct:         "500000000000000",
				LpFeeTotal:       "15000000",
				Timestamp:        "1711000000",
				IsAmountTooLow:   false,
				QuoteBlock:       "19500000",
				SpokePoolAddress: "0x4D9079Bb4165aeb4084c526a32695dCfd2F77381",
			},
		},
		{
			// Just below the $1 minimum: still quoted, flagged too low,
			// and the flat gas cost dwarfs the amount (~40% fee).
			name:        "usdc below minimum deposit",
			origin:      bridge.ChainEthereum,
			destination: bridge.ChainOptimism,
			symbol:      "USDC",
			amount:      "999999",
			want: Quote{
				CapitalFeePct:    "300000000000000",
				CapitalFeeTotal:  "299",
				RelayGasFeePct:   "400000400000400000",
				RelayGasFeeTotal: "399999",
				RelayFeePct:      "400300400000400000",
				RelayFeeTotal:    "400299",
				LpFeePct:         "500000000000000",
				LpFeeTotal:       "499",
				Timestamp:        "1711000000",
				IsAmountTooLow:   true,
				QuoteBlock:       "19500000",
				SpokePoolAddress: "0x4D9079Bb4165aeb4084c526a32695dCfd2F77381",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, token, origin := quoteFixture(t, tt.origin, tt.destination, tt.symbol)
			got, err := calc.Quote(route, token, origin, amount(t, tt.amount), at)
			if err != nil {
				t.Fatalf("Quote() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Quote() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCalculatorQuoteSurchargeBoundary(t *testing.T) {
	calc := NewCalculator(DefaultSchedule())
	route, token, origin := quoteFixture(t, bridge.ChainEthereum, bridge.ChainOptimism, "USDC")
	at := time.Unix(anchorUnix, 0)

	// Exactly at the instant limit: base capital fee only.
	atLimit, err := calc.Quote(route, token, origin, amount(t, "25000000000"), at)
	if err != nil {
		t.Fatalf("Quote() error: %v", err)
	}
	if atLimit.CapitalFeePct != "300000000000000" {
		t.Errorf("at instant limit CapitalFeePct = %s, want 300000000000000", atLimit.CapitalFeePct)
	}

	// One base unit above: surcharge applies.
	aboveLimit, err := calc.Quote(route, token, origin, amount(t, "25000000001"), at)
	if err != nil {
		t.Fatalf("Quote() error: %v", err)
	}
	if aboveLimit.CapitalFeePct != "1000000000000000" {
		t.Errorf("above instant limit CapitalFeePct = %s, want 1000000000000000", aboveLimit.CapitalFeePct)
	}
}

func TestCalculatorQuoteGasPctShrinksWithAmount(t *testing.T) {
	calc := NewCalculator(DefaultSchedule())
	route, token, origin := quoteFixture(t, bridge.ChainEthereum, bridge.ChainOptimism, "USDC")
	at := time.Unix(anchorUnix, 0)

	small, err := calc.Quote(route, token, origin, amount(t, "1000000000"), at)
	if err != nil {
		t.Fatalf("Quote() error: %v", err)
	}
	large, err := calc.Quote(route, token, origin, amount(t, "1000000000000"), at)
	if err != nil {
		t.Fatalf("Quote() error: %v", err)
	}

	smallPct, _ := new(big.Int).SetString(small.RelayGasFeePct, 10)
	largePct, _ := new(big.Int).SetString(large.RelayGasFeePct, 10)
	if smallPct.Cmp(largePct) <= 0 {
		t.Errorf("gas pct should shrink as the amount grows: %s vs %s", small.RelayGasFeePct, large.RelayGasFeePct)
	}
}

func TestCalculatorQuoteDeterministic(t *testing.T) {
	calc := NewCalculator(DefaultSchedule())
	route, token, origin := quoteFixture(t, bridge.ChainPolygon, bridge.ChainArbitrum, "WBTC")
	at := time.Unix(1_720_000_000, 0)

	first, err := calc.Quote(route, token, origin, amount(t, "12345678"), at)
	if err != nil {
		t.Fatalf("Quote() error: %v", err)
	}
	second, err := calc.Quote(route, token, origin, amount(t, "12345678"), at)
	if err != nil {
		t.Fatalf("Quote() error: %v", err)
	}
	if first != second {
		t.Errorf("identical inputs produced different quotes:\n%+v\n%+v", first, second)
	}
}

func TestCalculatorQuoteInvalidAmount(t *testing.T) {
	calc := NewCalculator(DefaultSchedule())
	route, token, origin := quoteFixture(t, bridge.ChainEthereum, bridge.ChainOptimism, "USDC")
	at := time.Unix(anchorUnix, 0)

	tests := []struct {
		name   string
		amount *big.Int
	}{
		{"nil", nil},
		{"zero", big.NewInt(0)},
		{"negative", big.NewInt(-5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Quote(route, token, origin, tt.amount, at)
			if !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("Quote() error = %v, want ErrInvalidAmount", err)
			}
		})
	}
}

func TestBlockForTime(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want uint64
	}{
		{"at anchor", time.Unix(anchorUnix, 0), anchorBlock},
		{"one block later", time.Unix(anchorUnix+12, 0), anchorBlock + 1},
		{"mid block", time.Unix(anchorUnix+11, 0), anchorBlock},
		{"two blocks later", time.Unix(anchorUnix+24, 0), anchorBlock + 2},
		{"before anchor clamps", time.Unix(anchorUnix-100, 0), anchorBlock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := blockForTime(tt.at); got != tt.want {
				t.Errorf("blockForTime() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScheduleFallbacks(t *testing.T) {
	s := DefaultSchedule()

	if got := s.lpFeeBPS("UNLISTED"); got != s.DefaultLPFeeBPS {
		t.Errorf("lpFeeBPS(UNLISTED) = %d, want default %d", got, s.DefaultLPFeeBPS)
	}
	if got := s.gasCostUSDCents(999_999); got != s.DefaultGasCostUSDCents {
		t.Errorf("gasCostUSDCents(999999) = %d, want default %d", got, s.DefaultGasCostUSDCents)
	}
}

func BenchmarkCalculatorQuote(b *testing.B) {
	calc := NewCalculator(DefaultSchedule())
	route, err := bridge.FindRoute(bridge.ChainEthereum, bridge.ChainOptimism, "USDC")
	if err != nil {
		b.Fatalf("FindRoute error: %v", err)
	}
	token, _ := bridge.LookupToken("USDC")
	origin, _ := bridge.LookupChain(bridge.ChainEthereum)
	amt := big.NewInt(1_000_000_000)
	at := time.Unix(anchorUnix, 0)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := calc.Quote(route, token, origin, amt, at); err != nil {
			b.Fatal(err)
		}
	}
}

package fees

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dohaki/across-api/internal/bridge"
	"github.com/dohaki/across-api/internal/platform/cache"
	"github.com/dohaki/across-api/internal/platform/observability"
	"github.com/dohaki/across-api/internal/platform/worker"
)

// ServiceConfig tunes the quote service.
type ServiceConfig struct {
	// QuoteTTL is how long computed quotes stay cached. Zero applies
	// the cache provider's default TTL.
	QuoteTTL time.Duration
	// LimitsTTL is how long computed deposit limits stay cached. Zero
	// applies the cache provider's default TTL.
	LimitsTTL time.Duration
	// Clock supplies quote timestamps. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultServiceConfig returns the standard service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		QuoteTTL:  cache.DefaultTTL,
		LimitsTTL: cache.DefaultTTL,
		Clock:     time.Now,
	}
}

// QuoteRequest identifies the deposit to price.
type QuoteRequest struct {
	Symbol             string
	Amount             *big.Int
	OriginChainID      uint64
	DestinationChainID uint64
}

// Service answers fee, limit and route queries. Quotes and limits are
// served read-through: cache first, compute on miss, then cache the
// result. A failed cache write is logged and the computed value is
// returned anyway, since the caller's answer does not depend on the
// write landing.
type Service struct {
	provider cache.Provider
	calc     *Calculator
	logger   *observability.Logger
	metrics  *observability.Metrics
	tracer   trace.Tracer
	cfg      ServiceConfig
}

// NewService wires a quote service. A nil tracer disables tracing.
func NewService(provider cache.Provider, calc *Calculator, logger *observability.Logger, metrics *observability.Metrics, tracer trace.Tracer, cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("fees")
	}
	return &Service{
		provider: provider,
		calc:     calc,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		cfg:      cfg,
	}
}

// SuggestedFees returns the fee breakdown for the requested deposit,
// validating the token, chains and route against the registry.
func (s *Service) SuggestedFees(ctx context.Context, req QuoteRequest) (quote Quote, err error) {
	ctx, span := s.tracer.Start(ctx, "fees.suggested_fees", trace.WithAttributes(
		attribute.String("bridge.token", req.Symbol),
		attribute.Int64("bridge.origin_chain", int64(req.OriginChainID)),
		attribute.Int64("bridge.destination_chain", int64(req.DestinationChainID)),
	))
	defer func() { observability.EndSpanWithError(span, err) }()

	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return Quote{}, ErrInvalidAmount
	}
	token, err := bridge.LookupToken(req.Symbol)
	if err != nil {
		return Quote{}, err
	}
	route, err := bridge.FindRoute(req.OriginChainID, req.DestinationChainID, token.Symbol)
	if err != nil {
		return Quote{}, err
	}
	origin, err := bridge.LookupChain(req.OriginChainID)
	if err != nil {
		return Quote{}, err
	}

	key := quoteKey(route, req.Amount)
	if cached, ok := cache.GetJSON[Quote](ctx, s.provider, key); ok {
		s.metrics.RecordCacheHit(ctx, "fees")
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	s.metrics.RecordCacheMiss(ctx, "fees")

	quote, err = s.calc.Quote(route, token, origin, req.Amount, s.cfg.Clock())
	if err != nil {
		return Quote{}, err
	}
	s.metrics.RecordQuoteComputed(ctx, token.Symbol, route.OriginChainID, route.DestinationChainID)

	if setErr := cache.SetJSON(ctx, s.provider, key, quote, s.cfg.QuoteTTL); setErr != nil {
		// The next request recomputes; the quote itself is still good.
		s.logger.LogWarn(ctx, "quote cache write failed", "key", key, "error", setErr)
	}
	return quote, nil
}

// Limits returns the deposit limits for a token on a destination chain.
func (s *Service) Limits(ctx context.Context, symbol string, destinationChainID uint64) (limits DepositLimits, err error) {
	ctx, span := s.tracer.Start(ctx, "fees.limits", trace.WithAttributes(
		attribute.String("bridge.token", symbol),
		attribute.Int64("bridge.destination_chain", int64(destinationChainID)),
	))
	defer func() { observability.EndSpanWithError(span, err) }()

	token, err := bridge.LookupToken(symbol)
	if err != nil {
		return DepositLimits{}, err
	}
	if _, err = bridge.LookupChain(destinationChainID); err != nil {
		return DepositLimits{}, err
	}

	key := limitsKey(destinationChainID, token.Symbol)
	if cached, ok := cache.GetJSON[DepositLimits](ctx, s.provider, key); ok {
		s.metrics.RecordCacheHit(ctx, "limits")
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	s.metrics.RecordCacheMiss(ctx, "limits")

	limits = LimitsFor(token)
	s.metrics.RecordLimitsComputed(ctx, token.Symbol, destinationChainID)

	if setErr := cache.SetJSON(ctx, s.provider, key, limits, s.cfg.LimitsTTL); setErr != nil {
		s.logger.LogWarn(ctx, "limits cache write failed", "key", key, "error", setErr)
	}
	return limits, nil
}

// AvailableRoutes lists bridgeable routes, optionally narrowed by
// origin chain, destination chain and token symbol. Zero values are
// wildcards; filters that match nothing yield an empty list rather
// than an error.
func (s *Service) AvailableRoutes(ctx context.Context, origin, destination uint64, symbol string) []bridge.Route {
	_, span := s.tracer.Start(ctx, "fees.available_routes")
	defer span.End()

	return bridge.FilterRoutes(origin, destination, symbol)
}

func quoteKey(route bridge.Route, amount *big.Int) string {
	return fmt.Sprintf("fees:%d:%d:%s:%s", route.OriginChainID, route.DestinationChainID, route.Symbol, amount)
}

func limitsKey(destinationChainID uint64, symbol string) string {
	return fmt.Sprintf("limits:%d:%s", destinationChainID, symbol)
}

// LimitsWarmer pre-computes deposit limits for every destination/token
// pair on the worker pool and stores them in a single batch write. It
// satisfies cache.WarmupProvider.
type LimitsWarmer struct {
	service *Service
	pool    *worker.Pool
}

// NewLimitsWarmer creates a warmer backed by the given pool.
func NewLimitsWarmer(service *Service, pool *worker.Pool) *LimitsWarmer {
	return &LimitsWarmer{service: service, pool: pool}
}

// Name identifies the warmer in warmup logs and metrics.
func (w *LimitsWarmer) Name() string { return "deposit-limits" }

// Warmup computes limits for every pair and writes them in one batch.
// Pair failures do not stop the batch; they are joined into the
// returned error alongside any batch write failure.
func (w *LimitsWarmer) Warmup(ctx context.Context) error {
	return observability.RecordSpan(ctx, w.service.tracer, "fees.warmup_limits", func(ctx context.Context) error {
		pairs := limitPairs()
		jobs := make([]worker.Job, 0, len(pairs))
		for _, pair := range pairs {
			key := limitsKey(pair.destination, pair.symbol)
			jobs = append(jobs, worker.Job{
				ID: key,
				Execute: func(ctx context.Context) (any, error) {
					token, err := bridge.LookupToken(pair.symbol)
					if err != nil {
						return nil, err
					}
					data, err := json.Marshal(LimitsFor(token))
					if err != nil {
						return nil, err
					}
					return cache.Entry{Key: key, Value: data, TTL: w.service.cfg.LimitsTTL}, nil
				},
			})
		}

		results := w.pool.SubmitAndWait(jobs)

		entries := make([]cache.Entry, 0, len(results))
		var errs []error
		for _, res := range results {
			if res.Err != nil {
				errs = append(errs, fmt.Errorf("fees: warm %s: %w", res.JobID, res.Err))
				continue
			}
			entries = append(entries, res.Value.(cache.Entry))
		}
		if len(results) < len(jobs) {
			errs = append(errs, fmt.Errorf("fees: %d of %d warmup jobs did not complete", len(jobs)-len(results), len(jobs)))
		}

		if len(entries) > 0 {
			if err := w.service.provider.SetMany(ctx, entries); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// limitPair is one (destination chain, token) combination that owns a
// cached limits entry.
type limitPair struct {
	destination uint64
	symbol      string
}

func limitPairs() []limitPair {
	seen := make(map[limitPair]bool)
	var pairs []limitPair
	for _, route := range bridge.Routes() {
		pair := limitPair{destination: route.DestinationChainID, symbol: route.Symbol}
		if !seen[pair] {
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

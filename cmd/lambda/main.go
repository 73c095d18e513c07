package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/dohaki/across-api/internal/fees"
	"github.com/dohaki/across-api/internal/platform/cache"
	"github.com/dohaki/across-api/internal/platform/observability"
	"github.com/dohaki/across-api/internal/server"
)

var adapter *httpadapter.HandlerAdapterV2

// init builds the whole handler once per container so warm invocations
// reuse the cache provider and router. Configuration is environment-borne;
// there is no config file on Lambda.
func init() {
	logger := observability.NewLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	provider, err := cache.NewFromEnv(logger)
	if err != nil {
		log.Fatalf("Failed to create cache provider: %v", err)
	}

	// No scrape endpoint exists on Lambda, so instruments are no-ops.
	metrics, err := observability.NewMetrics("across-api-lambda", false)
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}

	feeService := fees.NewService(
		provider,
		fees.NewCalculator(fees.DefaultSchedule()),
		logger,
		metrics,
		nil,
		fees.DefaultServiceConfig(),
	)

	// No warming loop and no rate limiter here: the platform owns the
	// process lifecycle and API Gateway throttles upstream.
	adapter = httpadapter.NewV2(server.New(server.Deps{
		Fees:       feeService,
		Cache:      provider,
		Logger:     logger,
		Metrics:    metrics,
		ReadyCheck: server.CacheReadyCheck(provider),
	}))

	logger.Info("lambda handler initialized")
}

// Handler proxies API Gateway HTTP API events through the router.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return adapter.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(Handler)
}

// Package main runs the analysis proxy as an AWS Lambda function behind an
// API Gateway HTTP API.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/BagWardrobe/internal/config"
	"github.com/atinyakov/BagWardrobe/internal/logger"
	"github.com/atinyakov/BagWardrobe/internal/server/handler/http"
	"github.com/atinyakov/BagWardrobe/internal/service"
)

// chiLambda wraps the router; it is built once per cold start and holds no
// per-request state.
var (
	chiLambda *chiadapter.ChiLambdaV2
	zapLogger *zap.Logger
)

func init() {
	options := config.Parse()

	l := logger.New()
	if err := l.Init(options.LogLevel); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	zapLogger = l.Log

	if err := options.Validate(); err != nil {
		zapLogger.Fatal("invalid configuration", zap.Error(err))
	}

	client := service.NewProviderClient(service.DefaultBreakerConfig("provider"), zapLogger)
	analysisService := service.NewAnalysisService(options.AnalysisConfig(), client, nil, zapLogger)

	router := http.NewRouter(&http.AnalyzeHandler{
		Service: analysisService,
		CORS:    http.DefaultCORSPolicy(),
		Logger:  zapLogger,
	}, nil, zapLogger)

	mux, ok := router.(*chi.Mux)
	if !ok {
		zapLogger.Fatal("router is not a chi.Mux")
	}
	chiLambda = chiadapter.NewV2(mux)
}

// Handler is the Lambda function handler.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := chiLambda.ProxyWithContextV2(ctx, req)
	if err != nil {
		zapLogger.Error("lambda proxy failed",
			zap.String("request_id", req.RequestContext.RequestID),
			zap.Error(err),
		)
	}
	return resp, err
}

func main() {
	defer func() { _ = zapLogger.Sync() }()
	lambda.Start(Handler)
}

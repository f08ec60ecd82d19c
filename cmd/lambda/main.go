package main

import (
	"context"
	"log"
	"time"

	"diagramsync/infrastructure/config"
	"diagramsync/infrastructure/di"
	"diagramsync/interfaces/http/rest"
	"diagramsync/interfaces/http/rest/middleware"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"
)

// Global variables for Lambda lifecycle management
var (
	// chiLambda wraps the Chi router for AWS Lambda integration
	chiLambda *chiadapter.ChiLambdaV2

	// container holds the dependency injection container
	container *di.Container

	// coldStart tracks whether this is a cold start invocation
	coldStart = true

	// coldStartTime records when the cold start began
	coldStartTime time.Time
)

// init runs during cold start
func init() {
	coldStartTime = time.Now()
	log.Println("Lambda cold start initiated")

	ctx := context.Background()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, err = di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Realtime sessions need a long-lived process, so the Lambda serves the
	// read API only. API Gateway's JWT authorizer has already checked the caller.
	router := rest.NewRouter(
		container.QueryBus,
		nil,
		nil,
		container.DiagramStore,
		container.Metrics,
		rest.RouterConfig{
			Lambda:            true,
			RequestsPerMinute: 600,
		},
		container.Logger,
	)

	chiLambda = chiadapter.NewV2(router.Setup())

	log.Printf("Lambda cold start completed in %v", time.Since(coldStartTime))
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}

	// Never trust identity headers sent by the caller
	delete(req.Headers, "x-api-gateway-authorized")
	delete(req.Headers, "x-user-id")
	delete(req.Headers, "x-user-name")

	if authorizer := req.RequestContext.Authorizer; authorizer != nil && authorizer.JWT != nil {
		if sub := authorizer.JWT.Claims["sub"]; sub != "" {
			req.Headers[middleware.HeaderGatewayAuthorized] = "true"
			req.Headers[middleware.HeaderGatewayIdentity] = sub
			req.Headers[middleware.HeaderGatewayName] = authorizer.JWT.Claims["name"]
		}
	}

	// Process the request through the Chi router
	resp, err := chiLambda.ProxyWithContextV2(ctx, req)

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		resp.Headers["X-Cold-Start-Duration"] = time.Since(coldStartTime).String()
		coldStart = false
	} else {
		resp.Headers["X-Cold-Start"] = "false"
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Request-ID"] = req.RequestContext.RequestID
	}

	container.Logger.Info("Lambda response",
		zap.String("method", req.RequestContext.HTTP.Method),
		zap.String("path", req.RequestContext.HTTP.Path),
		zap.String("request_id", req.RequestContext.RequestID),
		zap.Int("status_code", resp.StatusCode),
		zap.String("stage", req.RequestContext.Stage),
	)
	if resp.StatusCode >= 500 {
		container.Logger.Error("Lambda error response",
			zap.String("body", resp.Body),
			zap.Int("status_code", resp.StatusCode),
		)
	}

	return resp, err
}

// main is the entry point for the Lambda function
func main() {
	lambda.Start(Handler)
}

package cli

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/spf13/cobra"
	"voice-quiz-service/internal/config"
	transport "voice-quiz-service/internal/transport/http"
)

// NewLambdaCmd serves the turn API behind API Gateway instead of a listener.
func NewLambdaCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve quiz turns as an AWS Lambda function",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			config.InitLogger(cfg.Log.Level, "json")

			rt, err := buildRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			// websockets are not available through the API Gateway proxy
			router := transport.NewRouter(transport.NewTurnHandler(rt.service), nil)
			adapter := chiadapter.New(router)
			lambda.Start(adapter.ProxyWithContext)
			return nil
		},
	}
}

package cli

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/mariakisialiova/itechart-quiz/internal/container"
	"github.com/spf13/cobra"
)

func newLambdaCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve the application as an API Gateway Lambda handler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			c, err := container.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			adapter := httpadapter.New(c.Router())
			lambda.Start(adapter.ProxyWithContext)
			return nil
		},
	}
}

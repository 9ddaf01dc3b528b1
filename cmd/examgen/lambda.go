package main

import (
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/spf13/cobra"
)

func lambdaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lambda",
		Short: "Serve the router as an AWS Lambda function behind API Gateway",
		RunE:  runLambda,
	}
	f := cmd.Flags()
	addServerFlags(f)
	addLLMFlags(f)
	addLogFlags(f)
	return cmd
}

func runLambda(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	router, reg, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	go reg.Run(cmd.Context())

	slog.Info("starting lambda handler",
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"base_path", cfg.Server.BasePath,
	)
	lambda.Start(chiadapter.New(router).ProxyWithContext)
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pavelanni/examgen/internal/client"
	"github.com/pavelanni/examgen/internal/config"
	"github.com/pavelanni/examgen/internal/form"
	"github.com/pavelanni/examgen/internal/llm"
	"github.com/pavelanni/examgen/internal/model"
)

const clientTimeout = 2 * time.Minute

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate NAME",
		Short: "Print the subject breakdown of one exam",
		Long: "Generate the subject breakdown of the named exam and print it.\n" +
			"Without --server the model is called directly; with it the request goes to a running examgen server.",
		Args: cobra.MinimumNArgs(1),
		RunE: runGenerate,
	}
	f := cmd.Flags()
	f.StringP("format", "f", "json", "Output format (json, yaml)")
	f.StringP("server", "s", "", "Base URL of an examgen server (e.g. http://localhost:8080)")
	addLLMFlags(f)
	addLogFlags(f)
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	v, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	format := strings.ToLower(v.GetString("format"))
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown output format %q", format)
	}

	gen, err := newGenerator(cmd.Context(), v.GetString("server"), cfg)
	if err != nil {
		return err
	}

	data, err := gen.Generate(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	return writeBreakdown(cmd.OutOrStdout(), data, format)
}

func newGenerator(ctx context.Context, server string, cfg config.Config) (form.Generator, error) {
	if server != "" {
		return client.New(server, &http.Client{Timeout: clientTimeout}), nil
	}
	llmClient, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	return llmClient, nil
}

// writeBreakdown prints data as indented JSON or YAML.
func writeBreakdown(w io.Writer, data *model.ExamData, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil
	}
}

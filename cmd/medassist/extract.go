package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"medassist/apps/backend/internal/response"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func newExtractCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Recover a structured answer from raw model text",
		Long: `Read raw model output from a file or stdin, recover the JSON answer in it
and print the sanitized result.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readExtractInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			result, err := response.Parse(raw)
			if err != nil {
				return fmt.Errorf("extract answer: %w", err)
			}
			return writeResult(cmd.OutOrStdout(), result, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "Output format (json, yaml)")
	return cmd
}

func readExtractInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}

func writeResult(w io.Writer, result response.Result, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case formatJSON, "":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case formatYAML, "yml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported format %q (use json or yaml)", format)
	}
}

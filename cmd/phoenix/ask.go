package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newAskCmd(a *app) *cobra.Command {
	var (
		codeFile string
		asJSON   bool
		details  bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the answer",
		Long: `Ask a single question. Use --code-file to attach code for review or
debugging; "-" reads the code from stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("question cannot be empty")
			}

			var code string
			switch codeFile {
			case "":
			case "-":
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read code from stdin: %w", err)
				}
				code = string(data)
			default:
				data, err := os.ReadFile(codeFile)
				if err != nil {
					return fmt.Errorf("failed to read code file: %w", err)
				}
				code = string(data)
			}

			if err := a.setup(!asJSON); err != nil {
				return err
			}
			tutor, err := a.buildTutor(cmd.Context())
			if err != nil {
				return err
			}
			defer tutor.Close()

			out := tutor.Orchestrator.ProcessQuery(cmd.Context(), query, code)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			renderOutcome(cmd.OutOrStdout(), out, details)
			return nil
		},
	}

	cmd.Flags().StringVar(&codeFile, "code-file", "", `File with code to analyze ("-" for stdin)`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full outcome as JSON")
	cmd.Flags().BoolVar(&details, "details", false, "Print each agent's answer before the merged one")
	return cmd
}

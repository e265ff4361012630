package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tallyloom/internal/analysis"
	"github.com/KaramelBytes/tallyloom/internal/pipeline"
	"github.com/KaramelBytes/tallyloom/internal/session"
	"github.com/KaramelBytes/tallyloom/internal/utils"
)

var (
	anaInput      parseFlags
	anaOutputPath string
	anaOutputType string
	anaSampleRows int
	anaNoRound    bool
	anaSave       bool
	anaName       string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Parse a file, classify its records and print a summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		outType := strings.ToLower(strings.TrimSpace(anaOutputType))
		switch outType {
		case "md", "markdown":
			outType = "md"
		case "json":
		default:
			return fmt.Errorf("unsupported --output-format: %s (use md|json)", anaOutputType)
		}
		opts, err := anaInput.options()
		if err != nil {
			return err
		}
		engine, err := anaInput.engine()
		if err != nil {
			return err
		}
		text, err := anaInput.readInput(cmd, path)
		if err != nil {
			return err
		}
		res, err := engine.ParseAndClassify(text, opts)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		name := anaName
		if name == "" {
			name = sourceName(path)
		}
		rep := engine.Report(name, res, anaSampleRows, !anaNoRound)

		var body []byte
		if outType == "json" {
			body, err = utils.PrettyJSON(rep)
			if err != nil {
				return err
			}
			body = append(body, '\n')
		} else {
			body = []byte(rep.Markdown())
		}

		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, body); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
		} else {
			fmt.Fprint(cmd.OutOrStdout(), string(body))
		}

		if anaSave {
			id, err := saveSession(cmd.Context(), name, res)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved session %s\n", id)
		}
		return nil
	},
}

// saveSession stores res under name in the configured store.
func saveSession(ctx context.Context, name string, res *pipeline.Result) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore()
	if err != nil {
		return "", err
	}
	defer st.Close()
	s := session.New(name, res)
	if err := st.Save(ctx, s); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return s.ID, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaInput.bind(analyzeCmd.Flags())
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
	analyzeCmd.Flags().StringVar(&anaOutputType, "output-format", "md", "report format: md|json")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", analysis.DefaultOptions().SampleRows, "number of sample rows to include (0 disables)")
	analyzeCmd.Flags().BoolVar(&anaNoRound, "no-round", false, "report statistics without rounding to 2 decimals")
	analyzeCmd.Flags().BoolVar(&anaSave, "save", false, "store the classified records as a session")
	analyzeCmd.Flags().StringVar(&anaName, "name", "", "session/report name (defaults to the file name)")
}

package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tallyloom/internal/classify"
	"github.com/KaramelBytes/tallyloom/internal/export"
	"github.com/KaramelBytes/tallyloom/internal/utils"
)

var (
	expType   string
	expFormat string
	expOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export one bucket of a session as CSV, TSV, JSON or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := classify.ParseKind(expType)
		if err != nil {
			return err
		}
		ef, err := export.ParseFormat(expFormat)
		if err != nil {
			return err
		}
		if ef == export.XLSX && expOutput == "" {
			return fmt.Errorf("xlsx export requires --output")
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		s, err := st.Load(cmd.Context(), args[0])
		if err != nil {
			return sessionErr(args[0], err)
		}
		seq := s.Bucket(kind)
		if len(seq) == 0 {
			return fmt.Errorf("session %s has no %s records", s.ID, kind.Label())
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, seq, ef); err != nil {
			return err
		}
		if expOutput == "" {
			_, err := cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		if err := utils.SafeWriteFile(expOutput, buf.Bytes()); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d %s records to %s\n", len(seq), kind.Label(), expOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&expType, "type", "t", "financeiro", "bucket to export: financeiro|organizacional")
	exportCmd.Flags().StringVarP(&expFormat, "format", "f", "csv", "output format: csv|tsv|json|xlsx")
	exportCmd.Flags().StringVarP(&expOutput, "output", "o", "", "output path (stdout if omitted; required for xlsx)")
}

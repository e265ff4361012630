package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tallyloom/internal/analysis"
	"github.com/KaramelBytes/tallyloom/internal/classify"
	"github.com/KaramelBytes/tallyloom/internal/utils"
)

var (
	insAnalysis string
	insType     string
	insValue    string
	insDate     string
	insCategory string
	insBins     int
	insLimit    int
	insAgainst  string
)

var insightsCmd = &cobra.Command{
	Use:   "insights <session-id>",
	Short: "Trend, histogram, top categories or comparison over a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := classify.ParseKind(insType)
		if err != nil {
			return err
		}
		which := strings.ToLower(strings.TrimSpace(insAnalysis))
		if which == "compare" && insAgainst == "" {
			return fmt.Errorf("--against is required for compare")
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

		var out any
		switch which {
		case "trend":
			out = analysis.Trend(seq, insValue, insDate)
		case "histogram":
			out = analysis.Histogram(seq, insValue, insBins)
		case "top":
			out = analysis.TopByCategory(seq, insValue, insCategory, insLimit)
		case "compare":
			other, err := st.Load(cmd.Context(), insAgainst)
			if err != nil {
				return sessionErr(insAgainst, err)
			}
			out = analysis.Compare(seq, other.Bucket(kind), insValue)
		default:
			return fmt.Errorf("unknown --analysis %q (use trend|histogram|top|compare)", insAnalysis)
		}
		b, err := utils.PrettyJSON(out)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(insightsCmd)
	insightsCmd.Flags().StringVarP(&insAnalysis, "analysis", "a", "trend", "trend|histogram|top|compare")
	insightsCmd.Flags().StringVarP(&insType, "type", "t", "financeiro", "bucket to analyze: financeiro|organizacional")
	insightsCmd.Flags().StringVar(&insValue, "value", analysis.DefaultAmountFields[0], "numeric field")
	insightsCmd.Flags().StringVar(&insDate, "date", analysis.DefaultDateField, "trend: date field")
	insightsCmd.Flags().StringVar(&insCategory, "category", "", "top: category field (default: categoria/tipo/category/type)")
	insightsCmd.Flags().IntVar(&insBins, "bins", 10, "histogram: number of bins")
	insightsCmd.Flags().IntVar(&insLimit, "limit", 10, "top: number of categories")
	insightsCmd.Flags().StringVar(&insAgainst, "against", "", "compare: session id of the second dataset")
}

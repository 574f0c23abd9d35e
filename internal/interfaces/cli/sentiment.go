package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vlxd-platform/market-intelligence/internal/application/sentiment"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

var (
	sentimentInput     string
	sentimentNoAspects bool
	sentimentOutput    string
)

// NewSentimentCmd creates the review sentiment command.
func NewSentimentCmd(svc sentiment.Service, logger logging.Logger) *cobra.Command {
	sentimentCmd := &cobra.Command{
		Use:   "sentiment",
		Short: "Analyze Vietnamese review sentiment",
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Analyze one review text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) == 1 {
				text = args[0]
			}
			return runSentimentAnalyze(cmd, svc, logger, text)
		},
	}

	analyzeCmd.Flags().BoolVar(&sentimentNoAspects, "no-aspects", false, "skip the per-aspect breakdown")
	analyzeCmd.Flags().StringVar(&sentimentOutput, "output", "", "output format (table, json)")

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze a file of review texts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSentimentBatch(cmd, svc, logger)
		},
	}

	batchCmd.Flags().StringVar(&sentimentInput, "input", "", "JSON file with an array of review strings, '-' for stdin (required)")
	batchCmd.Flags().StringVar(&sentimentOutput, "output", "", "output format (table, json)")
	batchCmd.MarkFlagRequired("input")

	sentimentCmd.AddCommand(analyzeCmd, batchCmd)
	return sentimentCmd
}

func runSentimentAnalyze(cmd *cobra.Command, svc sentiment.Service, logger logging.Logger, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.NewValidationError("text", "review text is required")
	}

	req := sentiment.AnalyzeRequest{Text: text}
	if sentimentNoAspects {
		includeAspects := false
		req.Options = &sentiment.AnalyzeOptions{IncludeAspects: &includeAspects}
	}

	logger.Debug("analyzing review", logging.Int("length", len(text)))

	result, err := svc.Analyze(cmd.Context(), req)
	if err != nil {
		return err
	}

	if outputFormat(cmd, sentimentOutput) == "json" {
		return printJSON(cmd, result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nSentiment: %s (score %+.2f, confidence %.0f%%)\n",
		colorizeSentiment(string(result.Sentiment)), result.Score, result.Confidence*100)
	if len(result.Keywords.Positive) > 0 {
		fmt.Fprintf(out, "Positive terms: %s\n", strings.Join(result.Keywords.Positive, ", "))
	}
	if len(result.Keywords.Negative) > 0 {
		fmt.Fprintf(out, "Negative terms: %s\n", strings.Join(result.Keywords.Negative, ", "))
	}

	if len(result.Aspects) > 0 {
		fmt.Fprintln(out)
		aspects := make([]string, 0, len(result.Aspects))
		for name := range result.Aspects {
			aspects = append(aspects, name)
		}
		sort.Strings(aspects)

		table := tablewriter.NewWriter(out)
		table.Header([]string{"Aspect", "Sentiment", "Score", "Mentions"})
		for _, name := range aspects {
			aspect := result.Aspects[name]
			table.Append([]string{
				name,
				colorizeSentiment(string(aspect.Sentiment)),
				fmt.Sprintf("%+.2f", aspect.Score),
				fmt.Sprintf("%d", aspect.Mentions),
			})
		}
		table.Render()
	}

	return nil
}

func runSentimentBatch(cmd *cobra.Command, svc sentiment.Service, logger logging.Logger) error {
	var texts []string
	if err := readJSONFile(sentimentInput, &texts); err != nil {
		return err
	}

	logger.Debug("analyzing reviews", logging.Int("count", len(texts)))

	result, err := svc.AnalyzeBatch(cmd.Context(), sentiment.BatchRequest{Texts: texts})
	if err != nil {
		return err
	}

	if outputFormat(cmd, sentimentOutput) == "json" {
		return printJSON(cmd, result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%d reviews: %.0f%% positive, %.0f%% negative, %d neutral\n\n",
		result.Summary.Total, result.Summary.PositivePercent, result.Summary.NegativePercent, result.Summary.Neutral)

	table := tablewriter.NewWriter(out)
	table.Header([]string{"Sentiment", "Score", "Text"})
	for _, item := range result.Results {
		table.Append([]string{
			colorizeSentiment(string(item.Sentiment)),
			fmt.Sprintf("%+.2f", item.Score),
			truncateString(item.Text, 60),
		})
	}
	table.Render()

	return nil
}

func colorizeSentiment(label string) string {
	switch strings.ToLower(label) {
	case "positive":
		return color.GreenString(label)
	case "negative":
		return color.RedString(label)
	default:
		return color.YellowString(label)
	}
}

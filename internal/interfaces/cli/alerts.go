package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vlxd-platform/market-intelligence/internal/application/market"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
)

var (
	alertsInput    string
	alertsCategory string
	alertsPeriod   int
	alertsOutput   string
)

// NewAlertsCmd creates the market monitoring command.
func NewAlertsCmd(svc market.Service, logger logging.Logger) *cobra.Command {
	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "Scan market data for price alerts and trends",
		Long:  "Scan product price snapshots for anomalies and volatility, or analyze the price trend of a category.",
	}

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Generate alerts from a snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlertsScan(cmd, svc, logger)
		},
	}

	scanCmd.Flags().StringVar(&alertsInput, "input", "", "JSON file with an array of product price snapshots, '-' for stdin (required)")
	scanCmd.Flags().StringVar(&alertsOutput, "output", "", "output format (table, json)")
	scanCmd.MarkFlagRequired("input")

	trendsCmd := &cobra.Command{
		Use:   "trends",
		Short: "Analyze the price trend of one category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlertsTrends(cmd, svc, logger)
		},
	}

	trendsCmd.Flags().StringVar(&alertsInput, "input", "", "JSON file with an array of {date, price} points, '-' for stdin (required)")
	trendsCmd.Flags().StringVar(&alertsCategory, "category", "", "category label for the report")
	trendsCmd.Flags().IntVar(&alertsPeriod, "period", 0, "analysis window in days (default 30)")
	trendsCmd.Flags().StringVar(&alertsOutput, "output", "", "output format (table, json)")
	trendsCmd.MarkFlagRequired("input")

	alertsCmd.AddCommand(scanCmd, trendsCmd)
	return alertsCmd
}

func runAlertsScan(cmd *cobra.Command, svc market.Service, logger logging.Logger) error {
	var snapshots []market.ProductSnapshot
	if err := readJSONFile(alertsInput, &snapshots); err != nil {
		return err
	}

	logger.Debug("scanning snapshots", logging.Int("count", len(snapshots)))

	result, err := svc.GenerateAlerts(cmd.Context(), snapshots)
	if err != nil {
		return err
	}

	if outputFormat(cmd, alertsOutput) == "json" {
		return printJSON(cmd, result)
	}

	out := cmd.OutOrStdout()
	if len(result.Alerts) == 0 {
		fmt.Fprintln(out, "No alerts.")
		return nil
	}

	fmt.Fprintf(out, "\n%d alerts: %d critical, %d high, %d medium\n\n",
		result.Summary.Total, result.Summary.Critical, result.Summary.High, result.Summary.Medium)

	table := tablewriter.NewWriter(out)
	table.Header([]string{"Severity", "Type", "Product", "Message"})
	for _, alert := range result.Alerts {
		table.Append([]string{
			colorizeSeverity(string(alert.Severity)),
			string(alert.Type),
			alert.Product,
			truncateString(alert.Message, 70),
		})
	}
	table.Render()

	return nil
}

func runAlertsTrends(cmd *cobra.Command, svc market.Service, logger logging.Logger) error {
	var points []market.PricePoint
	if err := readJSONFile(alertsInput, &points); err != nil {
		return err
	}

	logger.Debug("analyzing trend",
		logging.String("category", alertsCategory),
		logging.Int("points", len(points)))

	report, err := svc.AnalyzeTrends(cmd.Context(), market.TrendRequest{
		Category:     alertsCategory,
		PeriodDays:   alertsPeriod,
		PriceHistory: points,
	})
	if err != nil {
		return err
	}

	if outputFormat(cmd, alertsOutput) == "json" {
		return printJSON(cmd, report)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nCategory %s, period %s\n", report.Category, report.Period)
	fmt.Fprintf(out, "Trend: %s (%+.1f%%), avg price %s VND (was %s VND)\n",
		report.Summary.Trend, report.Summary.ChangePercent,
		formatVND(report.Summary.CurrentAvgPrice), formatVND(report.Summary.PreviousAvgPrice))
	fmt.Fprintf(out, "30d outlook: %s VND [%s, %s] at %.0f%% confidence\n",
		formatVND(report.Forecast.Prediction),
		formatVND(report.Forecast.LowerBound), formatVND(report.Forecast.UpperBound),
		report.Forecast.Confidence*100)
	fmt.Fprintf(out, "Signals: technical %s, news %s, combined %s\n",
		report.Signals.Technical, report.Signals.News, colorizeSignal(string(report.Signals.Combined)))

	return nil
}

func colorizeSeverity(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return color.New(color.FgRed, color.Bold).Sprint(severity)
	case "high":
		return color.RedString(severity)
	case "medium":
		return color.YellowString(severity)
	default:
		return severity
	}
}

func colorizeSignal(signal string) string {
	switch strings.ToLower(signal) {
	case "buy":
		return color.GreenString(signal)
	case "sell":
		return color.RedString(signal)
	default:
		return color.YellowString(signal)
	}
}

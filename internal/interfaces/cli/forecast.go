package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/client"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

var (
	forecastProductID string
	forecastDays      int
	forecastInput     string
	forecastOutput    string
)

// NewForecastCmd creates the demand forecasting command.  Model artifacts
// live on the API server, so every subcommand goes through the SDK client.
func NewForecastCmd(logger logging.Logger) *cobra.Command {
	forecastCmd := &cobra.Command{
		Use:   "forecast",
		Short: "Train and query demand forecasts",
		Long:  "Train per-product demand models on a running API server and query forecasts from them.",
	}

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Train a demand model for one product",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForecastTrain(cmd, logger)
		},
	}

	trainCmd.Flags().StringVar(&forecastProductID, "product", "", "product identifier (required)")
	trainCmd.Flags().StringVar(&forecastInput, "input", "", "JSON file with an array of {date, quantity} points; omitted means the server pulls its own sales history")
	trainCmd.MarkFlagRequired("product")

	predictCmd := &cobra.Command{
		Use:   "predict",
		Short: "Forecast demand for one product",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForecastPredict(cmd, logger)
		},
	}

	predictCmd.Flags().StringVar(&forecastProductID, "product", "", "product identifier (required)")
	predictCmd.Flags().IntVar(&forecastDays, "days", 0, "forecast horizon in days (server default when 0)")
	predictCmd.Flags().StringVar(&forecastOutput, "output", "", "output format (table, json)")
	predictCmd.MarkFlagRequired("product")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List the stored demand models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForecastModels(cmd)
		},
	}
	modelsCmd.Flags().StringVar(&forecastOutput, "output", "", "output format (table, json)")

	forecastCmd.AddCommand(trainCmd, predictCmd, modelsCmd)
	return forecastCmd
}

func forecastClient(cmd *cobra.Command) (*client.ForecastClient, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, err
	}
	if cliCtx.Client == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "no API server configured; set --server or server.port in config")
	}
	return cliCtx.Client.Forecast(), nil
}

func runForecastTrain(cmd *cobra.Command, logger logging.Logger) error {
	fc, err := forecastClient(cmd)
	if err != nil {
		return err
	}

	req := &client.TrainRequest{ProductID: forecastProductID}
	if forecastInput != "" {
		if err := readJSONFile(forecastInput, &req.History); err != nil {
			return err
		}
	}

	logger.Debug("training model",
		logging.String("productId", forecastProductID),
		logging.Int("historyPoints", len(req.History)))

	result, err := fc.Train(cmd.Context(), req)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Trained %s model for %s: accuracy %.1f%%, MAPE %.1f%% over %d points.\n",
		result.Method, result.ProductID, result.Metrics.Accuracy, result.Metrics.MAPE, result.Metrics.DataPoints)
	return nil
}

func runForecastPredict(cmd *cobra.Command, logger logging.Logger) error {
	fc, err := forecastClient(cmd)
	if err != nil {
		return err
	}

	logger.Debug("predicting demand",
		logging.String("productId", forecastProductID),
		logging.Int("days", forecastDays))

	result, err := fc.Predict(cmd.Context(), forecastProductID, forecastDays)
	if err != nil {
		return err
	}

	if outputFormat(cmd, forecastOutput) == "json" {
		return printJSON(cmd, result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nProduct %s, trend %s\n", result.ProductID, result.TrendDirection)
	fmt.Fprintf(out, "Total predicted %.1f units, average %.1f/day\n\n", result.TotalPredicted, result.AvgDaily)

	table := tablewriter.NewWriter(out)
	table.Header([]string{"Date", "Predicted", "Lower", "Upper"})
	for _, p := range result.Predictions {
		table.Append([]string{
			p.Date,
			fmt.Sprintf("%.1f", p.Predicted),
			fmt.Sprintf("%.1f", p.Lower),
			fmt.Sprintf("%.1f", p.Upper),
		})
	}
	table.Render()

	return nil
}

func runForecastModels(cmd *cobra.Command) error {
	fc, err := forecastClient(cmd)
	if err != nil {
		return err
	}

	models, err := fc.ListModels(cmd.Context())
	if err != nil {
		return err
	}

	if outputFormat(cmd, forecastOutput) == "json" {
		return printJSON(cmd, models)
	}

	out := cmd.OutOrStdout()
	if len(models) == 0 {
		fmt.Fprintln(out, "No trained models.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header([]string{"Product", "Accuracy", "MAPE", "Points", "Trained"})
	for _, m := range models {
		row := []string{m.ProductID, "", "", "", ""}
		if m.Metrics != nil {
			row[1] = fmt.Sprintf("%.1f%%", m.Metrics.Accuracy)
			row[2] = fmt.Sprintf("%.1f%%", m.Metrics.MAPE)
			row[3] = fmt.Sprintf("%d", m.Metrics.DataPoints)
			row[4] = m.Metrics.TrainedAt
		}
		table.Append(row)
	}
	table.Render()

	return nil
}

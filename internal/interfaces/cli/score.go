package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vlxd-platform/market-intelligence/internal/application/churn"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

var (
	scoreCustomerID     string
	scoreLastOrder      string
	scoreOrders12M      int
	scoreSpent12M       float64
	scoreRecent3M       float64
	scorePrevious3M     float64
	scoreHasReviews     bool
	scoreAvgRating      float64
	scoreTickets        int
	scoreComplaintRatio float64
	scoreInput          string
	scoreMinProbability float64
	scoreLimit          int
	scoreOutput         string
)

// NewScoreCmd creates the customer churn scoring command.
func NewScoreCmd(svc churn.Service, logger logging.Logger) *cobra.Command {
	scoreCmd := &cobra.Command{
		Use:   "score",
		Short: "Score customer churn risk",
		Long:  "Score a single customer's churn risk from behavioural features, or rank a customer file by churn probability.",
	}

	customerCmd := &cobra.Command{
		Use:   "customer",
		Short: "Score one customer's churn risk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScoreCustomer(cmd, svc, logger)
		},
	}

	customerCmd.Flags().StringVar(&scoreCustomerID, "customer-id", "", "customer identifier (required)")
	customerCmd.Flags().StringVar(&scoreLastOrder, "last-order", "", "date of the most recent order (YYYY-MM-DD)")
	customerCmd.Flags().IntVar(&scoreOrders12M, "orders-12m", 0, "order count over the last 12 months")
	customerCmd.Flags().Float64Var(&scoreSpent12M, "spent-12m", 0, "total spend over the last 12 months (VND)")
	customerCmd.Flags().Float64Var(&scoreRecent3M, "recent-3m", 0, "spend over the last 3 months (VND)")
	customerCmd.Flags().Float64Var(&scorePrevious3M, "previous-3m", 0, "spend over the 3 months before that (VND)")
	customerCmd.Flags().BoolVar(&scoreHasReviews, "has-reviews", false, "customer has left product reviews")
	customerCmd.Flags().Float64Var(&scoreAvgRating, "avg-rating", 0, "average rating given by the customer")
	customerCmd.Flags().IntVar(&scoreTickets, "tickets", 0, "support ticket count")
	customerCmd.Flags().Float64Var(&scoreComplaintRatio, "complaint-ratio", 0, "share of tickets that are complaints (0-1)")
	customerCmd.Flags().StringVar(&scoreOutput, "output", "", "output format (table, json)")
	customerCmd.MarkFlagRequired("customer-id")

	atRiskCmd := &cobra.Command{
		Use:   "at-risk",
		Short: "Rank a customer file by churn probability",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScoreAtRisk(cmd, svc, logger)
		},
	}

	atRiskCmd.Flags().StringVar(&scoreInput, "input", "", "JSON file with an array of customer feature records, '-' for stdin (required)")
	atRiskCmd.Flags().Float64Var(&scoreMinProbability, "min-probability", 0, "minimum churn probability to include (0-1)")
	atRiskCmd.Flags().IntVar(&scoreLimit, "limit", 0, "maximum customers to return")
	atRiskCmd.Flags().StringVar(&scoreOutput, "output", "", "output format (table, json)")
	atRiskCmd.MarkFlagRequired("input")

	scoreCmd.AddCommand(customerCmd, atRiskCmd)
	return scoreCmd
}

func runScoreCustomer(cmd *cobra.Command, svc churn.Service, logger logging.Logger) error {
	features := churn.CustomerFeatures{
		CustomerID:      scoreCustomerID,
		Orders12M:       scoreOrders12M,
		TotalSpent12M:   scoreSpent12M,
		Recent3MSpent:   scoreRecent3M,
		Previous3MSpent: scorePrevious3M,
		HasReviews:      scoreHasReviews,
		AvgRatingGiven:  scoreAvgRating,
		SupportTickets:  scoreTickets,
		ComplaintRatio:  scoreComplaintRatio,
	}

	if scoreLastOrder != "" {
		lastOrder, err := time.Parse("2006-01-02", scoreLastOrder)
		if err != nil {
			return errors.NewValidationError("last-order", "must be a YYYY-MM-DD date")
		}
		features.LastOrderDate = &lastOrder
	}

	logger.Debug("scoring customer", logging.String("customerId", scoreCustomerID))

	prediction, err := svc.Predict(cmd.Context(), features)
	if err != nil {
		return err
	}

	if outputFormat(cmd, scoreOutput) == "json" {
		return printJSON(cmd, prediction)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nCustomer %s\n", prediction.CustomerID)
	fmt.Fprintf(out, "Churn probability: %.1f%%  Risk: %s\n", prediction.ChurnProbability*100, colorizeRiskTier(string(prediction.RiskLevel)))
	fmt.Fprintf(out, "Recommendation: %s\n\n", prediction.Recommendation)

	if len(prediction.RiskFactors) > 0 {
		table := tablewriter.NewWriter(out)
		table.Header([]string{"Factor", "Impact", "Score"})
		for _, f := range prediction.RiskFactors {
			table.Append([]string{f.Factor, string(f.Impact), fmt.Sprintf("%.2f", f.Score)})
		}
		table.Render()
	}

	return nil
}

func runScoreAtRisk(cmd *cobra.Command, svc churn.Service, logger logging.Logger) error {
	var customers []churn.CustomerFeatures
	if err := readJSONFile(scoreInput, &customers); err != nil {
		return err
	}

	if scoreMinProbability < 0 || scoreMinProbability > 1 {
		return errors.NewValidationError("min-probability", "must be between 0 and 1")
	}

	logger.Debug("ranking customers", logging.Int("count", len(customers)))

	result, err := svc.AtRisk(cmd.Context(), churn.AtRiskRequest{
		Customers:      customers,
		MinProbability: scoreMinProbability,
		Limit:          scoreLimit,
	})
	if err != nil {
		return err
	}

	if outputFormat(cmd, scoreOutput) == "json" {
		return printJSON(cmd, result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nAt-risk customers: %d (critical %d, high %d, medium %d)\n\n",
		result.TotalAtRisk, result.Summary.Critical, result.Summary.High, result.Summary.Medium)

	table := tablewriter.NewWriter(out)
	table.Header([]string{"Customer", "Probability", "Risk", "Recommendation"})
	for _, p := range result.Customers {
		table.Append([]string{
			p.CustomerID,
			fmt.Sprintf("%.1f%%", p.ChurnProbability*100),
			colorizeRiskTier(string(p.RiskLevel)),
			truncateString(p.Recommendation, 60),
		})
	}
	table.Render()

	return nil
}

func colorizeRiskTier(tier string) string {
	switch strings.ToLower(tier) {
	case "critical":
		return color.New(color.FgRed, color.Bold).Sprint(tier)
	case "high":
		return color.RedString(tier)
	case "medium":
		return color.YellowString(tier)
	case "low":
		return color.GreenString(tier)
	default:
		return tier
	}
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

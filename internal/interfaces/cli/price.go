package cli

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vlxd-platform/market-intelligence/internal/application/pricing"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
)

var (
	priceProductID       string
	priceProductName     string
	priceBase            float64
	priceCost            float64
	priceCategory        string
	priceStock           float64
	priceDailySales      float64
	priceDemandIndex     float64
	priceCompetitorPrice float64
	priceMinMargin       float64
	priceMaxChange       float64
	priceInput           string
	priceOutput          string
)

// NewPriceCmd creates the price recommendation command.
func NewPriceCmd(svc pricing.Service, logger logging.Logger) *cobra.Command {
	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Recommend product prices",
		Long:  "Compute demand, inventory, competitor, and seasonality adjusted price recommendations for building material products.",
	}

	recommendCmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend a price for one product",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPriceRecommend(cmd, svc, logger)
		},
	}

	recommendCmd.Flags().StringVar(&priceProductID, "product-id", "", "product identifier (required)")
	recommendCmd.Flags().StringVar(&priceProductName, "name", "", "product name")
	recommendCmd.Flags().Float64Var(&priceBase, "base-price", 0, "current list price in VND (required)")
	recommendCmd.Flags().Float64Var(&priceCost, "cost", 0, "unit cost in VND")
	recommendCmd.Flags().StringVar(&priceCategory, "category", "", "product category for elasticity lookup")
	recommendCmd.Flags().Float64Var(&priceStock, "stock", -1, "current stock level")
	recommendCmd.Flags().Float64Var(&priceDailySales, "daily-sales", -1, "average daily sales")
	recommendCmd.Flags().Float64Var(&priceDemandIndex, "demand-index", -1, "demand index, 1.0 is baseline")
	recommendCmd.Flags().Float64Var(&priceCompetitorPrice, "competitor-price", -1, "average competitor price in VND")
	recommendCmd.Flags().Float64Var(&priceMinMargin, "min-margin", 0, "minimum margin constraint (0-1)")
	recommendCmd.Flags().Float64Var(&priceMaxChange, "max-change", 0, "maximum price change constraint (0-1)")
	recommendCmd.Flags().StringVar(&priceOutput, "output", "", "output format (table, json)")
	recommendCmd.MarkFlagRequired("product-id")
	recommendCmd.MarkFlagRequired("base-price")

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Recommend prices for a product file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPriceBatch(cmd, svc, logger)
		},
	}

	batchCmd.Flags().StringVar(&priceInput, "input", "", "JSON file with an array of products, '-' for stdin (required)")
	batchCmd.Flags().Float64Var(&priceMinMargin, "min-margin", 0, "minimum margin constraint (0-1)")
	batchCmd.Flags().Float64Var(&priceMaxChange, "max-change", 0, "maximum price change constraint (0-1)")
	batchCmd.Flags().StringVar(&priceOutput, "output", "", "output format (table, json)")
	batchCmd.MarkFlagRequired("input")

	elasticityCmd := &cobra.Command{
		Use:   "elasticity",
		Short: "Show the per-category price elasticity table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPriceElasticity(cmd, svc)
		},
	}
	elasticityCmd.Flags().StringVar(&priceOutput, "output", "", "output format (table, json)")

	priceCmd.AddCommand(recommendCmd, batchCmd, elasticityCmd)
	return priceCmd
}

func buildPriceConstraints() *pricing.Constraints {
	if priceMinMargin == 0 && priceMaxChange == 0 {
		return nil
	}
	return &pricing.Constraints{
		MinMargin:      priceMinMargin,
		MaxPriceChange: priceMaxChange,
	}
}

func runPriceRecommend(cmd *cobra.Command, svc pricing.Service, logger logging.Logger) error {
	product := pricing.Product{
		ProductID:   priceProductID,
		ProductName: priceProductName,
		BasePrice:   priceBase,
		Cost:        priceCost,
		Category:    priceCategory,
	}
	if priceStock >= 0 {
		product.CurrentStock = &priceStock
	}
	if priceDailySales >= 0 {
		product.AvgDailySales = &priceDailySales
	}
	if priceDemandIndex >= 0 {
		product.DemandIndex = &priceDemandIndex
	}
	if priceCompetitorPrice >= 0 {
		product.CompetitorAvgPrice = &priceCompetitorPrice
	}

	logger.Debug("recommending price", logging.String("productId", priceProductID))

	rec, err := svc.Recommend(cmd.Context(), product, buildPriceConstraints())
	if err != nil {
		return err
	}

	if outputFormat(cmd, priceOutput) == "json" {
		return printJSON(cmd, rec)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nProduct %s (%s)\n", rec.ProductID, rec.ProductName)
	fmt.Fprintf(out, "Current price:     %s VND\n", formatVND(rec.CurrentPrice))
	fmt.Fprintf(out, "Recommended price: %s VND (%s)\n\n", formatVND(rec.RecommendedPrice), colorizePriceChange(rec.PriceChangePercent))

	table := tablewriter.NewWriter(out)
	table.Header([]string{"Factor", "Multiplier", "Reason"})
	table.Append([]string{"Demand", fmt.Sprintf("%.3f", rec.Factors.Demand.Value), rec.Factors.Demand.Reason})
	table.Append([]string{"Inventory", fmt.Sprintf("%.3f", rec.Factors.Inventory.Value), rec.Factors.Inventory.Reason})
	table.Append([]string{"Competitor", fmt.Sprintf("%.3f", rec.Factors.Competitor.Value), rec.Factors.Competitor.Reason})
	table.Append([]string{"Time", fmt.Sprintf("%.3f", rec.Factors.Time.Value), rec.Factors.Time.Reason})
	table.Append([]string{"Combined", fmt.Sprintf("%.3f", rec.Factors.Combined), ""})
	table.Render()

	fmt.Fprintf(out, "\nProjected demand %.1f, revenue %s VND, profit %s VND (confidence %.0f%%)\n",
		rec.Projections.ExpectedDemand, formatVND(rec.Projections.ExpectedRevenue),
		formatVND(rec.Projections.ExpectedProfit), rec.Projections.Confidence*100)

	return nil
}

func runPriceBatch(cmd *cobra.Command, svc pricing.Service, logger logging.Logger) error {
	var products []pricing.Product
	if err := readJSONFile(priceInput, &products); err != nil {
		return err
	}

	logger.Debug("recommending prices", logging.Int("count", len(products)))

	result, err := svc.RecommendBatch(cmd.Context(), products, buildPriceConstraints())
	if err != nil {
		return err
	}

	if outputFormat(cmd, priceOutput) == "json" {
		return printJSON(cmd, result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%d products: %d increases, %d decreases, %d unchanged\n\n",
		result.Summary.Total, result.Summary.Increases, result.Summary.Decreases, result.Summary.Unchanged)

	table := tablewriter.NewWriter(out)
	table.Header([]string{"Product", "Current", "Recommended", "Change"})
	for _, rec := range result.Recommendations {
		table.Append([]string{
			rec.ProductID,
			formatVND(rec.CurrentPrice),
			formatVND(rec.RecommendedPrice),
			colorizePriceChange(rec.PriceChangePercent),
		})
	}
	table.Render()

	return nil
}

func runPriceElasticity(cmd *cobra.Command, svc pricing.Service) error {
	elasticity := svc.ElasticityTable()

	if outputFormat(cmd, priceOutput) == "json" {
		return printJSON(cmd, elasticity)
	}

	categories := make([]string, 0, len(elasticity))
	for category := range elasticity {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header([]string{"Category", "Elasticity"})
	for _, category := range categories {
		table.Append([]string{category, fmt.Sprintf("%.2f", elasticity[category])})
	}
	table.Render()

	return nil
}

// formatVND renders an amount with thousands separators, the way prices are
// quoted in the Vietnamese market.
func formatVND(amount float64) string {
	n := int64(amount + 0.5)
	if n < 0 {
		return "-" + formatVND(-amount)
	}

	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, c)
	}
	return string(out)
}

func colorizePriceChange(percent float64) string {
	formatted := fmt.Sprintf("%+.1f%%", percent)
	switch {
	case percent > 0:
		return color.GreenString(formatted)
	case percent < 0:
		return color.RedString(formatted)
	default:
		return formatted
	}
}

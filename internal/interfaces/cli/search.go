package cli

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/client"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
)

var (
	searchLimit      int
	searchCategory   string
	searchMinPrice   float64
	searchMaxPrice   float64
	searchNoSynonyms bool
	searchInput      string
	searchOutput     string
)

// NewSearchCmd creates the product search command.  Search state lives on the
// API server, so every subcommand goes through the SDK client.
func NewSearchCmd(logger logging.Logger) *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search the product catalog",
		Long:  "Semantic product search against a running API server: hybrid vector and keyword queries, typeahead suggestions, and index management.",
	}

	queryCmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run a semantic product search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearchQuery(cmd, logger, args[0])
		},
	}

	queryCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results (server default when 0)")
	queryCmd.Flags().StringVar(&searchCategory, "category", "", "restrict to one category")
	queryCmd.Flags().Float64Var(&searchMinPrice, "min-price", 0, "minimum price in VND")
	queryCmd.Flags().Float64Var(&searchMaxPrice, "max-price", 0, "maximum price in VND")
	queryCmd.Flags().BoolVar(&searchNoSynonyms, "no-synonyms", false, "disable synonym expansion")
	queryCmd.Flags().StringVar(&searchOutput, "output", "", "output format (table, json)")

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Index a product file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearchIndex(cmd, logger)
		},
	}

	indexCmd.Flags().StringVar(&searchInput, "input", "", "JSON file with an array of products, '-' for stdin (required)")
	indexCmd.MarkFlagRequired("input")

	suggestCmd := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Show typeahead suggestions for a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearchSuggest(cmd, args[0])
		},
	}
	suggestCmd.Flags().StringVar(&searchOutput, "output", "", "output format (table, json)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show search index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearchStats(cmd)
		},
	}

	searchCmd.AddCommand(queryCmd, indexCmd, suggestCmd, statsCmd)
	return searchCmd
}

func searchClient(cmd *cobra.Command) (*client.SearchClient, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, err
	}
	if cliCtx.Client == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "no API server configured; set --server or server.port in config")
	}
	return cliCtx.Client.Search(), nil
}

func runSearchQuery(cmd *cobra.Command, logger logging.Logger, query string) error {
	sc, err := searchClient(cmd)
	if err != nil {
		return err
	}

	req := &client.SearchRequest{Query: query, Limit: searchLimit}
	if searchCategory != "" || searchMinPrice > 0 || searchMaxPrice > 0 {
		req.Filters = &client.SearchFilters{
			Category: searchCategory,
			MinPrice: searchMinPrice,
			MaxPrice: searchMaxPrice,
		}
	}
	if searchNoSynonyms {
		expand := false
		req.ExpandSynonyms = &expand
	}

	logger.Debug("searching products", logging.String("query", query))

	result, err := sc.Semantic(cmd.Context(), req)
	if err != nil {
		return err
	}

	if outputFormat(cmd, searchOutput) == "json" {
		return printJSON(cmd, result)
	}

	out := cmd.OutOrStdout()
	if result.TotalResults == 0 {
		fmt.Fprintln(out, "No products found.")
		if len(result.Suggestions) > 0 {
			fmt.Fprintf(out, "Did you mean: %s\n", strings.Join(result.Suggestions, ", "))
		}
		return nil
	}

	fmt.Fprintf(out, "\n%d results for %q (%s)\n\n", result.TotalResults, result.Query, result.SearchType)

	table := tablewriter.NewWriter(out)
	table.Header([]string{"Score", "Product", "Category", "Price"})
	for _, hit := range result.Results {
		table.Append([]string{
			fmt.Sprintf("%.2f", hit.Score),
			truncateString(hit.Name, 50),
			hit.Category,
			formatVND(hit.Price),
		})
	}
	table.Render()

	return nil
}

func runSearchIndex(cmd *cobra.Command, logger logging.Logger) error {
	sc, err := searchClient(cmd)
	if err != nil {
		return err
	}

	var products []client.IndexProduct
	if err := readJSONFile(searchInput, &products); err != nil {
		return err
	}

	logger.Debug("indexing products", logging.Int("count", len(products)))

	result, err := sc.Index(cmd.Context(), products)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d products; index now holds %d (dimension %d).\n",
		result.Indexed, result.Stats.TotalProducts, result.Stats.Dimension)
	return nil
}

func runSearchSuggest(cmd *cobra.Command, prefix string) error {
	sc, err := searchClient(cmd)
	if err != nil {
		return err
	}

	suggestions, err := sc.Suggest(cmd.Context(), prefix)
	if err != nil {
		return err
	}

	if outputFormat(cmd, searchOutput) == "json" {
		return printJSON(cmd, suggestions)
	}

	out := cmd.OutOrStdout()
	if len(suggestions) == 0 {
		fmt.Fprintln(out, "No suggestions.")
		return nil
	}
	for _, s := range suggestions {
		fmt.Fprintf(out, "%-10s %s\n", s.Type, s.Text)
	}
	return nil
}

func runSearchStats(cmd *cobra.Command) error {
	sc, err := searchClient(cmd)
	if err != nil {
		return err
	}

	stats, err := sc.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Products indexed: %d (embedding dimension %d)\n",
		stats.TotalProducts, stats.Dimension)
	return nil
}

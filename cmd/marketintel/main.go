// CLI entry point for the market intelligence platform.
package main

import (
	"os"

	"github.com/vlxd-platform/market-intelligence/internal/application/churn"
	"github.com/vlxd-platform/market-intelligence/internal/application/market"
	"github.com/vlxd-platform/market-intelligence/internal/application/pricing"
	"github.com/vlxd-platform/market-intelligence/internal/application/sentiment"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	// The analytics commands are stateless, so their services run
	// in-process; persistentPreRun replaces the logger per the flags.
	logger := logging.NewNopLogger()

	err := cli.Execute(cli.CommandDependencies{
		Logger:    logger,
		Churn:     churn.NewService(churn.Deps{Logger: logger}),
		Pricing:   pricing.NewService(pricing.Deps{Logger: logger}),
		Market:    market.NewService(market.Deps{Logger: logger}),
		Sentiment: sentiment.NewService(sentiment.Deps{Logger: logger}),
	})
	if err != nil {
		os.Exit(1)
	}
}

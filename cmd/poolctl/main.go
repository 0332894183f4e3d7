package main

import (
	"os"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "poolctl",
		Short:        "Offline pool tooling: quotes, fee simulations and definition checks",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	defaults := amm.DefaultFeeParams()
	addMarketFlags := func(cmd *cobra.Command) {
		cmd.Flags().Uint64("reserve-a", 1_000_000, "initial reserve of token A")
		cmd.Flags().Uint64("reserve-b", 1_000_000, "initial reserve of token B")
		cmd.Flags().Uint64("base-fee-bps", defaults.BaseFeeBps, "base fee in basis points")
		cmd.Flags().Uint64("variable-factor", defaults.VariableFactor, "variable fee control")
		cmd.Flags().Int64("filter-period", defaults.FilterPeriod, "seconds before the volatility reference moves")
		cmd.Flags().Int64("decay-period", defaults.DecayPeriod, "seconds after which volatility resets")
		cmd.Flags().Uint64("decay-factor-bps", defaults.DecayFactorBps, "share of volatility kept between the two periods")
	}

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price one swap against a freshly seeded pool",
		RunE:  runQuote,
	}
	addMarketFlags(quoteCmd)
	quoteCmd.Flags().Uint64("amount-in", 10_000, "exact input amount")
	quoteCmd.Flags().Bool("b-to-a", false, "swap token B for token A")

	root.AddCommand(quoteCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a sequence of swaps and show how the dynamic fee evolves",
		RunE:  runSimulate,
	}
	addMarketFlags(simulateCmd)
	simulateCmd.Flags().Int("swaps", 10, "number of swaps")
	simulateCmd.Flags().Uint64("amount-in", 10_000, "exact input amount of every swap")
	simulateCmd.Flags().Duration("interval", 0, "time between swaps (truncated to seconds)")
	simulateCmd.Flags().Bool("alternate", false, "alternate the swap direction")

	root.AddCommand(simulateCmd)

	deriveCmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the pool addresses derived for a mint pair",
		RunE:  runDerive,
	}
	deriveCmd.Flags().String("mint-a", "", "token A mint (base58)")
	deriveCmd.Flags().String("mint-b", "", "token B mint (base58)")
	deriveCmd.Flags().String("program", amm.DefaultProgramID.String(), "program id (base58)")

	root.AddCommand(deriveCmd)

	validateCmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a pool definitions file",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	root.AddCommand(validateCmd)

	return root
}

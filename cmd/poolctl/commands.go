package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/pools"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newLogger(cmd *cobra.Command) (*logrus.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(lvl)
	return logger, nil
}

func feeFlags(cmd *cobra.Command) amm.FeeParams {
	var f amm.FeeParams
	f.BaseFeeBps, _ = cmd.Flags().GetUint64("base-fee-bps")
	f.VariableFactor, _ = cmd.Flags().GetUint64("variable-factor")
	f.FilterPeriod, _ = cmd.Flags().GetInt64("filter-period")
	f.DecayPeriod, _ = cmd.Flags().GetInt64("decay-period")
	f.DecayFactorBps, _ = cmd.Flags().GetUint64("decay-factor-bps")
	return f
}

func marketFlags(cmd *cobra.Command, logger *logrus.Logger) marketConfig {
	reserveA, _ := cmd.Flags().GetUint64("reserve-a")
	reserveB, _ := cmd.Flags().GetUint64("reserve-b")
	return marketConfig{
		ReserveA: reserveA,
		ReserveB: reserveB,
		Fees:     feeFlags(cmd),
		Logger:   logger,
	}
}

func runQuote(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	amountIn, _ := cmd.Flags().GetUint64("amount-in")
	bToA, _ := cmd.Flags().GetBool("b-to-a")

	m, err := newMarket(cmd.Context(), marketFlags(cmd, logger))
	if err != nil {
		return err
	}
	q, err := m.manager.Quote(cmd.Context(), marketName, m.mintIn(bToA), amountIn)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(q)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	var sim simulation
	sim.Swaps, _ = cmd.Flags().GetInt("swaps")
	sim.AmountIn, _ = cmd.Flags().GetUint64("amount-in")
	sim.Interval, _ = cmd.Flags().GetDuration("interval")
	sim.Alternate, _ = cmd.Flags().GetBool("alternate")
	if sim.Swaps <= 0 {
		return fmt.Errorf("swaps must be positive")
	}

	cfg := marketFlags(cmd, logger)
	total, err := fundingFor(sim)
	if err != nil {
		return err
	}
	cfg.FundA, cfg.FundB = total, total

	m, err := newMarket(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	steps, err := m.simulate(cmd.Context(), sim)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tDIR\tIN\tOUT\tFEE\tBASE_BPS\tVAR_BPS\tVOLATILITY\tSPOT_PRICE")
	for _, s := range steps {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			s.N, s.Direction, s.AmountIn, s.AmountOut, s.Fee, s.BaseBps, s.VarBps, s.Volatility, s.SpotPrice)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

// fundingFor is the balance a user needs to make every swap of sim from one side.
func fundingFor(sim simulation) (uint64, error) {
	n := uint64(sim.Swaps)
	if sim.AmountIn != 0 && n > ^uint64(0)/sim.AmountIn {
		return 0, fmt.Errorf("%w: %d swaps of %d", amm.ErrOverflow, sim.Swaps, sim.AmountIn)
	}
	return n * sim.AmountIn, nil
}

func runDerive(cmd *cobra.Command, _ []string) error {
	keys := make(map[string]solana.PublicKey, 3)
	for _, name := range []string{"mint-a", "mint-b", "program"} {
		raw, _ := cmd.Flags().GetString(name)
		key, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", name, err)
		}
		keys[name] = key
	}

	addrs, err := amm.DeriveAddresses(keys["program"], keys["mint-a"], keys["mint-b"])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(addrs)
}

func runValidate(cmd *cobra.Command, args []string) error {
	defs, err := pools.LoadDefinitions(args[0])
	if err != nil {
		return err
	}
	for _, def := range defs {
		addrs, err := amm.DeriveAddresses(amm.DefaultProgramID, def.MintA, def.MintB)
		if err != nil {
			return fmt.Errorf("pool %q: %w", def.Name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tbase=%dbps\n", def.Name, addrs.Pool, def.Fees.BaseFeeBps)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d pool definitions ok\n", len(defs))
	return nil
}

// signalctl runs the classifier and price oracle from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"degen-autotrader/internal/config"
	"degen-autotrader/internal/domain"
	"degen-autotrader/internal/provider"
	"degen-autotrader/internal/service"
	"degen-autotrader/internal/signal"
	"degen-autotrader/internal/swap"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
)

type priceReader interface {
	GetPrice(ctx context.Context, asset string) float64
	GetMarketCap(ctx context.Context, asset string) float64
	GetSOLPriceUSD(ctx context.Context) float64
}

var newPriceReaderFunc = func(cfg *config.Config) priceReader {
	tracer := trace.NewNoopTracerProvider().Tracer("signalctl")
	dex := provider.NewDexScreener(tracer, cfg.DexScreenerURL, provider.NoRetry)
	return service.NewPriceService(tracer, service.PriceServiceDeps{
		Aggregator:  dex,
		Launch:      provider.NewPumpFun(tracer, cfg.PumpFunURL, provider.NoRetry),
		LaunchMatch: provider.IsLaunchAsset,
		MarketCaps:  dex,
		SOLUSD:      provider.NewCoinGecko(tracer, cfg.CoinGeckoURL, provider.NoRetry),
		SOLFallback: cfg.SOLFallbackUSD,
	})
}

func main() {
	_ = godotenv.Load()
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var asJSON bool

	root := &cobra.Command{
		Use:           "signalctl",
		Short:         "Inspect trading signals, swap intents and prices",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	root.AddCommand(classifyCmd(&asJSON))
	root.AddCommand(parseIntentCmd(&asJSON))
	root.AddCommand(priceCmd(&asJSON))
	return root
}

func classifyCmd(asJSON *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <message text>",
		Short: "Classify a channel message without trading",
		Long: `Classify a channel message the way the listener does and print the
extracted token, address, links and entry bands.

Example:
  signalctl classify "Aping \$DOGE 7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := signal.Classify(strings.Join(args, " "))
			if *asJSON {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "classification: %s\n", s.Classification)
			if s.Token != "" {
				fmt.Fprintf(w, "token:          %s\n", s.Token)
			}
			if s.Address != "" {
				fmt.Fprintf(w, "address:        %s\n", s.Address)
			}
			for _, b := range s.Bands {
				fmt.Fprintf(w, "entry band:     %.0f-%.0f\n", b.Low, b.High)
			}
			for _, l := range s.Links {
				fmt.Fprintf(w, "link:           %s\n", l)
			}
			fmt.Fprintf(w, "actionable:     %t\n", s.IsActionable())
			return nil
		},
	}
}

func parseIntentCmd(asJSON *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "parse-intent <asset> <amount>",
		Short: "Parse a clipboard swap intent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := swap.ParseIntent(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if *asJSON {
				return writeJSON(cmd.OutOrStdout(), intent)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s for %.9g SOL\n", intent.Side(), intent.Asset(), intent.Amount)
			return nil
		},
	}
}

func priceCmd(asJSON *bool) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "price [asset]",
		Short: "Look up an asset's SOL price and market cap, or the SOL/USD rate",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			prices := newPriceReaderFunc(config.Load())
			if len(args) == 0 {
				usd := prices.GetSOLPriceUSD(ctx)
				if *asJSON {
					return writeJSON(cmd.OutOrStdout(), map[string]float64{"sol_usd": usd})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "SOL: $%.2f\n", usd)
				return nil
			}

			asset := strings.TrimSpace(args[0])
			price := prices.GetPrice(ctx, asset)
			if price <= 0 {
				return fmt.Errorf("%w for %s", domain.ErrPriceUnavailable, asset)
			}
			mcap := prices.GetMarketCap(ctx, asset)
			if *asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"asset": asset, "price": price, "market_cap_usd": mcap})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s SOL  mcap $%.0f\n", domain.ShortMint(asset), service.FormatPrice(price), mcap)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Lookup timeout")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

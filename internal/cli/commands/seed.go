package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aiokaizen/bear-vision/internal/lava/model"
	ti "github.com/aiokaizen/bear-vision/internal/tradinginsights"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	var symbols []string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in trading symbols",
		Long: `Create the built-in forex symbols that are not stored yet.
Existing symbols are left untouched, so the command can be run repeatedly.`,
		Example: `  # Load every built-in symbol
  bearvision seed

  # Load a few symbols only
  bearvision seed --symbol EURUSD --symbol GBPUSD`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			names := symbols
			if len(names) == 0 {
				names = ti.Symbols
			}
			mgr := model.NewManager(model.Config{Persister: cc.Store, Logger: cc.Logger})
			n, err := ti.SeedSymbols(cmd.Context(), cc.Store, mgr, names, nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %d of %d symbols\n", n, len(names))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&symbols, "symbol", nil, "Symbol to create (repeatable, default: all built-in symbols)")

	return cmd
}

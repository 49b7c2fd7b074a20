package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newSymbolsCmd(rc *RootConfig) *cobra.Command {
	var halfBake bool

	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "List the tradable symbols and their history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.load(cmd)
			if err != nil {
				return err
			}
			store, err := loadStore(cfg)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SYMBOL\tFIRST\tLAST\tBARS")
			for _, sym := range store.Symbols(halfBake) {
				bars, err := store.Bars(sym)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", sym,
					bars[0].Time.Format(time.DateOnly),
					bars[len(bars)-1].Time.Format(time.DateOnly),
					len(bars))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&halfBake, "half-bake", false, "Only the reduced universe")
	return cmd
}

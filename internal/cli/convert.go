package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/internal/data"
	"github.com/rustyeddy/backtester/pkg/market"
)

func newConvertCmd(rc *RootConfig) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "convert <src-dir> <dst-dir>",
		Short: "Convert bar files between csv and parquet",
		Long: `Read every symbol under src-dir and write it to dst-dir.

Examples:
  backtester convert ./csv ./parquet
  backtester convert --from parquet --to csv ./parquet ./csv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]

			bars, err := data.LoadDir(src, data.Format(from))
			if err != nil {
				return fmt.Errorf("read %s: %w", src, err)
			}

			symbols := make([]string, 0, len(bars))
			for sym := range bars {
				symbols = append(symbols, sym)
			}
			sort.Strings(symbols)

			switch data.Format(to) {
			case data.FormatParquet:
				ps := data.NewParquetStore(dst)
				for _, sym := range symbols {
					if err := ps.WriteBars(bars[sym]); err != nil {
						return err
					}
				}
			case data.FormatCSV:
				if err := os.MkdirAll(dst, 0o755); err != nil {
					return err
				}
				for _, sym := range symbols {
					if err := writeCSVFile(filepath.Join(dst, sym+".csv"), bars[sym]); err != nil {
						return err
					}
				}
			default:
				return fmt.Errorf("unknown target format %q", to)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "converted %d symbols from %s to %s\n", len(symbols), from, to)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "csv", "Source format: csv|parquet")
	cmd.Flags().StringVar(&to, "to", "parquet", "Target format: csv|parquet")
	return cmd
}

func writeCSVFile(path string, bars []market.Bar) (err error) {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
	}()
	return data.WriteCSV(fh, bars)
}

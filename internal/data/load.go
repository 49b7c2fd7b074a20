package data

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rustyeddy/backtester/pkg/market"
)

// Format names an on-disk layout.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// LoadDir reads every symbol under dir in the given format.
func LoadDir(dir string, format Format) (map[string][]market.Bar, error) {
	switch format {
	case FormatCSV, "":
		return LoadCSVDir(dir)
	case FormatParquet:
		return NewParquetStore(dir).LoadAll()
	default:
		return nil, fmt.Errorf("unknown data format %q", format)
	}
}

// Load reads dir and builds a Store from it.
func Load(dir string, format Format, opts Options) (*Store, error) {
	bars, err := LoadDir(dir, format)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dir, err)
	}
	return NewStore(bars, opts)
}

// LoadUniverse reads one symbol per line. Blank lines and lines starting
// with # are ignored.
func LoadUniverse(path string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var out []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.ToUpper(strings.Fields(line)[0]))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

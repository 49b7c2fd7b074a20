package data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/rustyeddy/backtester/pkg/market"
)

// BarRecord is the on-disk Parquet schema for a daily bar.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// ParquetStore reads and writes bars laid out as
//
//	<Dir>/<SYMBOL>/<YYYY>.parquet
type ParquetStore struct {
	Dir string
}

func NewParquetStore(dir string) *ParquetStore {
	return &ParquetStore{Dir: dir}
}

func (s *ParquetStore) barPath(symbol string, year int) string {
	return filepath.Join(s.Dir, strings.ToUpper(symbol), fmt.Sprintf("%04d.parquet", year))
}

// WriteBars merges bars into the per-symbol per-year files, replacing any
// existing bar with the same symbol and day.
func (s *ParquetStore) WriteBars(bars []market.Bar) error {
	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]BarRecord)
	for _, b := range bars {
		day := market.Day(b.Time)
		k := key{symbol: strings.ToUpper(b.Symbol), year: day.Year()}
		groups[k] = append(groups[k], BarRecord{
			Symbol:    k.symbol,
			Timestamp: day.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	for k, records := range groups {
		path := s.barPath(k.symbol, k.year)
		existing, err := readParquetFile[BarRecord](path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading bars for %s/%d: %w", k.symbol, k.year, err)
		}
		if err := writeParquetFile(path, mergeBarRecords(existing, records)); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// ReadBars returns every stored bar of symbol, oldest first.
func (s *ParquetStore) ReadBars(symbol string) ([]market.Bar, error) {
	files, err := filepath.Glob(filepath.Join(s.Dir, strings.ToUpper(symbol), "*.parquet"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var bars []market.Bar
	for _, path := range files {
		records, err := readParquetFile[BarRecord](path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, r := range records {
			bars = append(bars, market.Bar{
				Symbol: strings.ToUpper(symbol),
				Time:   time.UnixMilli(r.Timestamp).UTC(),
				Open:   r.Open,
				High:   r.High,
				Low:    r.Low,
				Close:  r.Close,
				Volume: r.Volume,
			})
		}
	}
	market.SortBars(bars)
	return bars, nil
}

// ListSymbols returns the symbol directories under Dir.
func (s *ParquetStore) ListSymbols() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// LoadAll reads every symbol in the store.
func (s *ParquetStore) LoadAll() (map[string][]market.Bar, error) {
	symbols, err := s.ListSymbols()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]market.Bar, len(symbols))
	for _, sym := range symbols {
		bars, err := s.ReadBars(sym)
		if err != nil {
			return nil, err
		}
		if len(bars) > 0 {
			out[strings.ToUpper(sym)] = bars
		}
	}
	return out, nil
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeBarRecords dedupes by (symbol, timestamp), preferring incoming.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}

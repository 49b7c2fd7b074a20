package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/backtester/pkg/market"
	"github.com/ulikunitz/xz"
)

var timeLayouts = []string{time.DateOnly, time.RFC3339, "2006-01-02 15:04:05"}

// ReadCSV parses daily bars for symbol from r. The header names the
// columns; timestamp (or date), open, high, low and close are required,
// volume and adjusted_close are optional. When adjusted_close is present
// every price is scaled by adjusted_close/close. Rows may come in any
// order; the result is oldest first. Short rows and two rows on the same
// day fail with market.ErrInvalidData.
func ReadCSV(r io.Reader, symbol string) ([]market.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if i, ok := col["date"]; ok {
		if _, dup := col["timestamp"]; !dup {
			col["timestamp"] = i
		}
	}
	for _, need := range []string{"timestamp", "open", "high", "low", "close"} {
		if _, ok := col[need]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", need, market.ErrInvalidData)
		}
	}
	adjIdx, adjusted := col["adjusted_close"]
	volIdx, hasVol := col["volume"]

	var bars []market.Bar
	seen := map[time.Time]int{}
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}

		field := func(name string) (float64, error) {
			i := col[name]
			if i >= len(row) {
				return 0, fmt.Errorf("line %d: missing %s: %w", line, name, market.ErrInvalidData)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				return 0, fmt.Errorf("line %d: bad %s %q: %w", line, name, row[i], err)
			}
			return v, nil
		}

		tsIdx := col["timestamp"]
		if tsIdx >= len(row) {
			return nil, fmt.Errorf("line %d: missing timestamp: %w", line, market.ErrInvalidData)
		}
		ts, err := parseTime(row[tsIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if first, dup := seen[ts]; dup {
			return nil, fmt.Errorf("line %d: %s already on line %d: %w",
				line, ts.Format(time.DateOnly), first, market.ErrInvalidData)
		}
		seen[ts] = line
		b := market.Bar{Symbol: symbol, Time: ts}
		if b.Open, err = field("open"); err != nil {
			return nil, err
		}
		if b.High, err = field("high"); err != nil {
			return nil, err
		}
		if b.Low, err = field("low"); err != nil {
			return nil, err
		}
		if b.Close, err = field("close"); err != nil {
			return nil, err
		}
		if hasVol && volIdx < len(row) {
			if b.Volume, err = field("volume"); err != nil {
				return nil, err
			}
		}
		if adjusted && adjIdx < len(row) && b.Close != 0 {
			adj, err := field("adjusted_close")
			if err != nil {
				return nil, err
			}
			ratio := adj / b.Close
			b.Open *= ratio
			b.High *= ratio
			b.Low *= ratio
			b.Close = adj
		}
		bars = append(bars, b)
	}

	market.SortBars(bars)
	return bars, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return market.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, market.ErrInvalidData)
}

// csvSymbol maps AAPL.csv and AAPL.csv.xz to AAPL.
func csvSymbol(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, ext := range []string{".csv.xz", ".csv"} {
		if strings.HasSuffix(lower, ext) {
			return strings.ToUpper(name[:len(name)-len(ext)]), true
		}
	}
	return "", false
}

// ReadCSVFile reads one symbol file, decompressing .xz files.
func ReadCSVFile(path string) ([]market.Bar, error) {
	sym, ok := csvSymbol(filepath.Base(path))
	if !ok {
		return nil, fmt.Errorf("%s: not a csv file", path)
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var r io.Reader = fh
	if strings.HasSuffix(strings.ToLower(path), ".xz") {
		xr, err := xz.NewReader(fh)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		r = xr
	}

	bars, err := ReadCSV(r, sym)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// LoadCSVDir reads every <SYMBOL>.csv or <SYMBOL>.csv.xz file in dir. A
// symbol may come from only one file.
func LoadCSVDir(dir string) (map[string][]market.Bar, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	out := map[string][]market.Bar{}
	from := map[string]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		sym, ok := csvSymbol(e.Name())
		if !ok {
			continue
		}
		if prev, dup := from[sym]; dup {
			return nil, fmt.Errorf("%s: %s also in %s: %w", dir, sym, prev, market.ErrInvalidData)
		}
		from[sym] = e.Name()
		bars, err := ReadCSVFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if len(bars) > 0 {
			out[sym] = bars
		}
	}
	return out, nil
}

// WriteCSV writes bars with the header ReadCSV expects.
func WriteCSV(w io.Writer, bars []market.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		if err := cw.Write([]string{
			b.Time.Format(time.DateOnly),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

package data

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/rustyeddy/backtester/pkg/market"
	"github.com/rustyeddy/backtester/pkg/sim"
)

var _ sim.MarketData = (*Store)(nil)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func bar(sym, date string, o, h, l, c float64) market.Bar {
	return market.Bar{Symbol: sym, Time: day(date), Open: o, High: h, Low: l, Close: c, Volume: 100}
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    []market.Bar
		wantErr bool
	}{
		{
			name: "newest first is sorted",
			input: "timestamp,open,high,low,close,volume\n" +
				"2020-01-03,11,12,10,11.5,200\n" +
				"2020-01-02,10,11,9,10.5,100\n",
			want: []market.Bar{
				{Symbol: "X", Time: day("2020-01-02"), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
				{Symbol: "X", Time: day("2020-01-03"), Open: 11, High: 12, Low: 10, Close: 11.5, Volume: 200},
			},
		},
		{
			name: "adjusted close scales prices",
			input: "timestamp,open,high,low,close,adjusted_close,volume\n" +
				"2020-01-02,20,22,18,20,10,100\n",
			want: []market.Bar{
				{Symbol: "X", Time: day("2020-01-02"), Open: 10, High: 11, Low: 9, Close: 10, Volume: 100},
			},
		},
		{
			name:  "date column and column order",
			input: "close,date,low,high,open\n5,2020-01-02,4,6,5\n",
			want: []market.Bar{
				{Symbol: "X", Time: day("2020-01-02"), Open: 5, High: 6, Low: 4, Close: 5},
			},
		},
		{
			name:    "missing column",
			input:   "timestamp,open,high,close\n2020-01-02,1,2,1\n",
			wantErr: true,
		},
		{
			name:    "bad number",
			input:   "timestamp,open,high,low,close\n2020-01-02,x,2,1,1\n",
			wantErr: true,
		},
		{
			name:    "bad timestamp",
			input:   "timestamp,open,high,low,close\nyesterday,1,2,1,1\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadCSV(strings.NewReader(tt.input), "X")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadCSVDir_PlainAndXZ(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []market.Bar{bar("AAPL", "2020-01-02", 1, 2, 0.5, 1.5)}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL.csv"), buf.Bytes(), 0o644))

	fh, err := os.Create(filepath.Join(dir, "msft.csv.xz"))
	require.NoError(t, err)
	xw, err := xz.NewWriter(fh)
	require.NoError(t, err)
	require.NoError(t, WriteCSV(xw, []market.Bar{
		bar("MSFT", "2020-01-03", 3, 4, 2, 3.5),
		bar("MSFT", "2020-01-02", 2, 3, 1, 2.5),
	}))
	require.NoError(t, xw.Close())
	require.NoError(t, fh.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o644))

	got, err := LoadCSVDir(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, got["MSFT"], 2)
	assert.True(t, got["MSFT"][0].Time.Before(got["MSFT"][1].Time))
	assert.Equal(t, 1.5, got["AAPL"][0].Close)
}

func TestParquetStore_RoundTripAndMerge(t *testing.T) {
	t.Parallel()
	ps := NewParquetStore(t.TempDir())

	require.NoError(t, ps.WriteBars([]market.Bar{
		bar("SPY", "2019-12-31", 1, 2, 0.5, 1),
		bar("SPY", "2020-01-02", 2, 3, 1, 2),
	}))
	// overwrite one day
	require.NoError(t, ps.WriteBars([]market.Bar{bar("SPY", "2020-01-02", 5, 6, 4, 5)}))

	_, err := os.Stat(filepath.Join(ps.Dir, "SPY", "2019.parquet"))
	require.NoError(t, err)

	syms, err := ps.ListSymbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY"}, syms)

	got, err := ps.ReadBars("spy")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day("2019-12-31"), got[0].Time)
	assert.Equal(t, 5.0, got[1].Close)
}

func TestLoadDir_UnknownFormat(t *testing.T) {
	t.Parallel()
	_, err := LoadDir(t.TempDir(), "xml")
	require.Error(t, err)
}

func TestLoadUniverse(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "universe.txt")
	require.NoError(t, os.WriteFile(path, []byte("# big caps\naapl\n\n  msft  extra\n"), 0o644))

	got, err := LoadUniverse(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func testBars() map[string][]market.Bar {
	return map[string][]market.Bar{
		"AAPL": {bar("AAPL", "2020-01-03", 1, 1, 1, 1), bar("AAPL", "2020-01-02", 1, 1, 1, 1)},
		"MSFT": {bar("MSFT", "2020-01-02", 1, 1, 1, 1), bar("MSFT", "2020-01-06", 1, 1, 1, 1)},
		"IBM":  {bar("IBM", "2020-01-07", 1, 1, 1, 1)},
	}
}

func TestStore_Calendar(t *testing.T) {
	t.Parallel()

	s, err := NewStore(testBars(), Options{CalendarSymbol: "aapl"})
	require.NoError(t, err)
	assert.True(t, s.IsTradingDay(day("2020-01-02")))
	assert.True(t, s.IsTradingDay(day("2020-01-03").Add(15*time.Hour)))
	assert.False(t, s.IsTradingDay(day("2020-01-06")))
	assert.Equal(t, 2, s.TradingDays(day("2020-01-01"), day("2020-01-31")))

	union, err := NewStore(testBars(), Options{})
	require.NoError(t, err)
	assert.True(t, union.IsTradingDay(day("2020-01-06")))
	assert.True(t, union.IsTradingDay(day("2020-01-07")))
	assert.False(t, union.IsTradingDay(day("2020-01-04")))

	_, err = NewStore(testBars(), Options{CalendarSymbol: "NOPE"})
	require.ErrorIs(t, err, market.ErrInvalidData)
}

func TestStore_SymbolsAndUniverse(t *testing.T) {
	t.Parallel()

	s, err := NewStore(testBars(), Options{HalfBakeCount: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "IBM", "MSFT"}, s.Symbols(false))
	assert.Equal(t, []string{"AAPL", "IBM"}, s.Symbols(true))
	assert.Equal(t, 3, s.Len())

	u, err := NewStore(testBars(), Options{Universe: []string{"msft", "TSLA", "MSFT"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, u.Symbols(false))
	assert.Equal(t, []string{"MSFT"}, u.Symbols(true))

	_, err = NewStore(testBars(), Options{Universe: []string{"TSLA"}})
	require.ErrorIs(t, err, market.ErrInvalidData)

	_, err = NewStore(nil, Options{})
	require.ErrorIs(t, err, market.ErrInvalidData)
}

func TestStore_BarsBetween(t *testing.T) {
	t.Parallel()

	s, err := NewStore(testBars(), Options{})
	require.NoError(t, err)

	got, err := s.BarsBetween("AAPL", day("2020-01-01"), day("2020-01-02"))
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = s.BarsBetween("AAPL", day("2020-02-01"), day("2020-03-01"))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.BarsBetween("TSLA", day("2020-01-01"), day("2020-01-02"))
	require.ErrorIs(t, err, market.ErrInvalidData)

	_, err = s.BarsBetween("AAPL", day("2020-01-03"), day("2020-01-02"))
	require.ErrorIs(t, err, market.ErrInvalidData)

	all, err := s.Bars("AAPL")
	require.NoError(t, err)
	assert.Equal(t, day("2020-01-02"), all[0].Time)
}

func TestReadCSV_RejectsMalformedRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "timestamp column past end of row",
			input: "open,high,low,close,timestamp\n1,2,0.5,1.5,2020-01-02\n1,2,0.5,1.5\n",
		},
		{
			name:  "price column past end of row",
			input: "timestamp,open,high,low,close\n2020-01-02,1,2\n",
		},
		{
			name: "two rows on one day",
			input: "timestamp,open,high,low,close\n" +
				"2020-01-02,1,2,0.5,1.5\n" +
				"2020-01-03,1,2,0.5,1.5\n" +
				"2020-01-02 15:04:05,1,2,0.5,1.5\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var bars []market.Bar
			var err error
			require.NotPanics(t, func() {
				bars, err = ReadCSV(strings.NewReader(tt.input), "X")
			})
			require.ErrorIs(t, err, market.ErrInvalidData)
			assert.Nil(t, bars)
		})
	}
}

func TestLoadCSVDir_SymbolInTwoFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []market.Bar{bar("AAPL", "2020-01-02", 1, 2, 0.5, 1.5)}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL.csv"), buf.Bytes(), 0o644))

	fh, err := os.Create(filepath.Join(dir, "AAPL.csv.xz"))
	require.NoError(t, err)
	xw, err := xz.NewWriter(fh)
	require.NoError(t, err)
	_, err = xw.Write(buf.Bytes())
	require.NoError(t, err)
	require.NoError(t, xw.Close())
	require.NoError(t, fh.Close())

	_, err = LoadCSVDir(dir)
	require.ErrorIs(t, err, market.ErrInvalidData)
}

func TestNewStore_RejectsDuplicateDays(t *testing.T) {
	t.Parallel()

	_, err := NewStore(map[string][]market.Bar{
		"AAPL": {
			bar("AAPL", "2020-01-03", 1, 1, 1, 1),
			bar("AAPL", "2020-01-02", 1, 1, 1, 1),
			{Symbol: "AAPL", Time: day("2020-01-02").Add(9 * time.Hour), Open: 2, High: 2, Low: 2, Close: 2},
		},
	}, Options{})
	require.ErrorIs(t, err, market.ErrInvalidData)

	_, err = NewStore(map[string][]market.Bar{
		"aapl": {bar("AAPL", "2020-01-02", 1, 1, 1, 1)},
		"AAPL": {bar("AAPL", "2020-01-03", 1, 1, 1, 1)},
	}, Options{})
	require.ErrorIs(t, err, market.ErrInvalidData)
}

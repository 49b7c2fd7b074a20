package journal

import (
	"encoding/csv"
	"errors"
	"os"
	"strconv"
	"time"
)

type CSV struct {
	trades *csv.Writer
	equity *csv.Writer
	events *csv.Writer // nil when no events path was given
	files  []*os.File
}

var (
	tradesHeader = []string{"trade_id", "run_id", "lot_id", "symbol", "shares", "entry_price", "exit_price", "open_time", "close_time", "realized_pl", "reason"}
	equityHeader = []string{"run_id", "time", "buying_power", "equity", "open_lots"}
	eventsHeader = []string{"run_id", "date", "logged", "message"}
)

// NewCSV creates the trade and equity files and, when eventsPath is not
// empty, an event log.
func NewCSV(tradesPath, equityPath, eventsPath string) (*CSV, error) {
	j := &CSV{}

	var err error
	if j.trades, err = j.create(tradesPath, tradesHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if j.equity, err = j.create(equityPath, equityHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if eventsPath != "" {
		if j.events, err = j.create(eventsPath, eventsHeader); err != nil {
			_ = j.Close()
			return nil, err
		}
	}
	return j, nil
}

func (j *CSV) create(path string, header []string) (*csv.Writer, error) {
	fh, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	j.files = append(j.files, fh)

	w := csv.NewWriter(fh)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	w.Flush()
	return w, w.Error()
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	return write(j.trades, []string{
		t.TradeID,
		t.RunID,
		t.LotID,
		t.Symbol,
		strconv.Itoa(t.Shares),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.Format(time.DateOnly),
		t.CloseTime.Format(time.DateOnly),
		f(t.RealizedPL),
		t.Reason,
	})
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	return write(j.equity, []string{
		e.RunID,
		e.Time.Format(time.DateOnly),
		f(e.BuyingPower),
		f(e.Equity),
		strconv.Itoa(e.OpenLots),
	})
}

func (j *CSV) RecordEvent(e EventRecord) error {
	if j.events == nil {
		return nil
	}
	return write(j.events, []string{
		e.RunID,
		e.Date.Format(time.DateOnly),
		e.Logged.Format(time.RFC3339),
		e.Message,
	})
}

func write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) Close() error {
	var errs []error
	for _, w := range []*csv.Writer{j.trades, j.equity, j.events} {
		if w == nil {
			continue
		}
		w.Flush()
		errs = append(errs, w.Error())
	}
	for _, fh := range j.files {
		errs = append(errs, fh.Close())
	}
	j.files = nil
	return errors.Join(errs...)
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

package timeseries

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one closed position from a strategy trade log.
type Trade struct {
	Strategy  string
	OpenTime  time.Time
	CloseTime time.Time
	PnL       decimal.Decimal
}

// ReadTrades loads a trade log CSV. The header names the columns; the loader
// needs strategy_name, open_time, close_time and pnl, in any order.
// Timestamps are anchored to loc.
func ReadTrades(path string, loc *time.Location) ([]Trade, error) {
	r, closeFn, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, need := range []string{"strategy_name", "open_time", "close_time", "pnl"} {
		if _, ok := idx[need]; !ok {
			return nil, fmt.Errorf("%s: %w: %q", path, ErrMissingColumn, need)
		}
	}

	var trades []Trade
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", path, line+1, err)
		}
		line++

		for _, need := range []string{"strategy_name", "open_time", "close_time", "pnl"} {
			if idx[need] >= len(rec) {
				return nil, fmt.Errorf("%s line %d: missing %q cell", path, line, need)
			}
		}
		openTime, err := ParseTimestamp(rec[idx["open_time"]], loc)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		closeTime, err := ParseTimestamp(rec[idx["close_time"]], loc)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		if closeTime.Before(openTime) {
			return nil, fmt.Errorf("%s line %d: close %s before open %s", path, line, closeTime, openTime)
		}
		pnl, err := decimal.NewFromString(strings.TrimSpace(rec[idx["pnl"]]))
		if err != nil {
			return nil, fmt.Errorf("%s line %d pnl: %w", path, line, err)
		}
		trades = append(trades, Trade{
			Strategy:  strings.TrimSpace(rec[idx["strategy_name"]]),
			OpenTime:  openTime,
			CloseTime: closeTime,
			PnL:       pnl,
		})
	}
	return trades, nil
}

// TradeStrategies returns the distinct strategy names in first-seen order.
func TradeStrategies(trades []Trade) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tr := range trades {
		if !seen[tr.Strategy] {
			seen[tr.Strategy] = true
			out = append(out, tr.Strategy)
		}
	}
	return out
}

package indicators

import (
	"fmt"

	"fxresearch/services/timeseries"
)

// Params bundles the indicator windows for one derived table.
type Params struct {
	SMAWindow        int
	EMASpan          int
	RSIWindow        int
	MACDShort        int
	MACDLong         int
	MACDSignal       int
	BollingerWindow  int
	BollingerStdDevs float64
	ADXWindow        int
	CMFWindow        int
	StochasticK      int
	StochasticD      int
	ROCPeriods       int
	PSARStep         float64
	PSARMax          float64
}

// DefaultParams are the conventional windows used across the derived tables.
func DefaultParams() Params {
	return Params{
		SMAWindow:        20,
		EMASpan:          20,
		RSIWindow:        14,
		MACDShort:        12,
		MACDLong:         26,
		MACDSignal:       9,
		BollingerWindow:  20,
		BollingerStdDevs: 2,
		ADXWindow:        14,
		CMFWindow:        20,
		StochasticK:      14,
		StochasticD:      3,
		ROCPeriods:       12,
		PSARStep:         0.02,
		PSARMax:          0.2,
	}
}

// Enrich attaches the full indicator column set to a candle frame in place.
// The frame must carry High, Low, Close and Volume value columns.
func Enrich(f *timeseries.Frame, p Params) error {
	var (
		highs, lows, closes, volumes []float64
		err                          error
	)
	for _, col := range []struct {
		name string
		dst  *[]float64
	}{
		{"High", &highs}, {"Low", &lows}, {"Close", &closes}, {"Volume", &volumes},
	} {
		*col.dst, err = f.Values(col.name)
		if err != nil {
			return fmt.Errorf("enrich: %w", err)
		}
	}

	f.SetValues(fmt.Sprintf("SMA_%d", p.SMAWindow), SMA(closes, p.SMAWindow))
	f.SetValues(fmt.Sprintf("EMA_%d", p.EMASpan), EMA(closes, p.EMASpan))
	f.SetValues(fmt.Sprintf("RSI_%d", p.RSIWindow), RSI(closes, p.RSIWindow))

	macd, signal := MACD(closes, p.MACDShort, p.MACDLong, p.MACDSignal)
	f.SetValues("MACD", macd)
	f.SetValues("MACD_Signal", signal)
	f.SetValues("MACD_Cross_Up", CrossAbove(macd, signal))
	f.SetValues("MACD_Cross_Down", CrossAbove(signal, macd))

	mid, upper, lower := Bollinger(closes, p.BollingerWindow, p.BollingerStdDevs)
	width := make([]float64, len(closes))
	for i := range width {
		width[i] = upper[i] - lower[i]
	}
	f.SetValues("Bollinger_Mid", mid)
	f.SetValues("Bollinger_Upper", upper)
	f.SetValues("Bollinger_Lower", lower)
	f.SetValues("Bollinger_Width", width)
	f.SetValues("Reversal_Up", CrossAbove(closes, upper))
	f.SetValues("Reversal_Down", CrossAbove(lower, closes))

	adx := ADX(highs, lows, closes, p.ADXWindow)
	f.SetValues("DI_Plus", adx.DIUp)
	f.SetValues("DI_Minus", adx.DIDown)
	f.SetValues("DX", adx.DX)
	f.SetValues("ADX", adx.ADX)

	sar, dir := PSAR(highs, lows, p.PSARStep, p.PSARMax)
	f.SetValues("PSAR", sar)
	f.SetValues("PSAR_Direction", dir)

	f.SetValues("OBV", OBV(closes, volumes))
	f.SetValues(fmt.Sprintf("CMF_%d", p.CMFWindow), CMF(highs, lows, closes, volumes, p.CMFWindow))

	vwap, cumVol, cumPV := VWAP(closes, volumes)
	f.SetValues("VWAP", vwap)
	f.SetValues("Cumulative_Volume", cumVol)
	f.SetValues("Cumulative_PV", cumPV)

	k, d, lo, hi := Stochastic(highs, lows, closes, p.StochasticK, p.StochasticD)
	f.SetValues("Stochastic_K", k)
	f.SetValues("Stochastic_D", d)
	f.SetValues(fmt.Sprintf("Low_%d", p.StochasticK), lo)
	f.SetValues(fmt.Sprintf("High_%d", p.StochasticK), hi)

	f.SetValues(fmt.Sprintf("ROC_%d", p.ROCPeriods), ROC(closes, p.ROCPeriods))
	return nil
}

package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"earnings-tracker/internal/errors"
	"earnings-tracker/internal/models"
)

// wireQuote is the gateway's quote object, shared by /quote and the elements
// of /batch-quotes.
type wireQuote struct {
	Symbol            string             `json:"symbol"`
	Current           *float64           `json:"current"`
	Change            float64            `json:"change"`
	ChangePercent     float64            `json:"changePercent"`
	DayHigh           float64            `json:"dayHigh"`
	DayLow            float64            `json:"dayLow"`
	Open              float64            `json:"open"`
	PreviousClose     float64            `json:"previousClose"`
	Timestamp         int64              `json:"timestamp"`
	AfterHours        *models.AfterHours `json:"afterHours"`
	Name              string             `json:"name"`
	Industry          string             `json:"industry"`
	Exchange          string             `json:"exchange"`
	MarketCap         *float64           `json:"marketCap"`
	SharesOutstanding *float64           `json:"sharesOutstanding"`
}

func (w wireQuote) toQuote() models.Quote {
	q := models.Quote{
		Symbol:            strings.ToUpper(strings.TrimSpace(w.Symbol)),
		Change:            w.Change,
		ChangePercent:     w.ChangePercent,
		DayHigh:           w.DayHigh,
		DayLow:            w.DayLow,
		Open:              w.Open,
		PreviousClose:     w.PreviousClose,
		Timestamp:         w.Timestamp,
		CompanyName:       strings.TrimSpace(w.Name),
		Industry:          w.Industry,
		Exchange:          w.Exchange,
		MarketCap:         w.MarketCap,
		SharesOutstanding: w.SharesOutstanding,
	}
	if w.Current != nil {
		q.CurrentPrice = *w.Current
	}
	if w.AfterHours != nil {
		ah := *w.AfterHours
		q.AfterHours = &ah
	}
	return q
}

// decodeQuote reads the /quote object. A 204 arrives as {} and yields ok=false.
func decodeQuote(raw []byte) (q models.Quote, ok bool, err error) {
	var w wireQuote
	if err := json.Unmarshal(bytes.TrimSpace(raw), &w); err != nil {
		return models.Quote{}, false, fmt.Errorf("%w: %v", errors.ErrShapeMismatch, err)
	}
	if w.Symbol == "" && w.Current == nil {
		return models.Quote{}, false, nil
	}
	return w.toQuote(), true, nil
}

// decodeQuotes reads the /batch-quotes array. A 204 arrives as {} and is an
// empty batch.
func decodeQuotes(raw []byte) ([]models.Quote, error) {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("{}")) {
		return []models.Quote{}, nil
	}
	var wire []wireQuote
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrShapeMismatch, err)
	}
	out := make([]models.Quote, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toQuote())
	}
	return out, nil
}

type wireBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// decodeHistory reads {historical: [...]} or a bare array of bars.
func decodeHistory(raw []byte) ([]models.PriceBar, error) {
	raw = bytes.TrimSpace(raw)
	var wire []wireBar
	switch {
	case len(raw) == 0:
		return nil, errors.ErrShapeMismatch
	case raw[0] == '[':
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrShapeMismatch, err)
		}
	case raw[0] == '{':
		var payload struct {
			Historical []wireBar `json:"historical"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrShapeMismatch, err)
		}
		wire = payload.Historical
	default:
		return nil, errors.ErrShapeMismatch
	}

	bars := make([]models.PriceBar, 0, len(wire))
	for _, w := range wire {
		date := w.Date
		if len(date) > 10 {
			date = date[:10]
		}
		bars = append(bars, models.PriceBar{
			Date:   date,
			Open:   w.Open,
			High:   w.High,
			Low:    w.Low,
			Close:  w.Close,
			Volume: int64(w.Volume),
		})
	}
	return bars, nil
}

// decodeSymbols reads ["AAPL", ...] or [{"symbol": "AAPL"}, ...].
func decodeSymbols(raw []byte) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrShapeMismatch, err)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		var sym string
		if err := json.Unmarshal(item, &sym); err != nil {
			var obj struct {
				Symbol string `json:"symbol"`
			}
			if err := json.Unmarshal(item, &obj); err != nil {
				return nil, fmt.Errorf("%w: %v", errors.ErrShapeMismatch, err)
			}
			sym = obj.Symbol
		}
		if sym = strings.ToUpper(strings.TrimSpace(sym)); sym != "" {
			out = append(out, sym)
		}
	}
	return out, nil
}

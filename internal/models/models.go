// Package models provides domain models for the earnings dashboard pipeline.
package models

import (
	"sort"
	"time"
)

// Timing is when a company announces relative to the regular session.
type Timing string

const (
	TimingBeforeOpen  Timing = "BMO"
	TimingAfterClose  Timing = "AMC"
	TimingDuringHours Timing = "DMH"
)

// MarketStatus is the trading-session phase derived from wall-clock time.
type MarketStatus string

const (
	MarketPreMarket  MarketStatus = "pre-market"
	MarketHours      MarketStatus = "market-hours"
	MarketAfterHours MarketStatus = "after-hours"
	MarketClosed     MarketStatus = "closed"
)

// IsTrading reports whether any session, extended or regular, is active.
func (s MarketStatus) IsTrading() bool {
	return s == MarketPreMarket || s == MarketHours || s == MarketAfterHours
}

// EarningsStatus tracks whether results have been published.
type EarningsStatus string

const (
	EarningsPending  EarningsStatus = "pending"
	EarningsReleased EarningsStatus = "released"
)

// BeatStatus classifies reported EPS against the consensus estimate.
type BeatStatus string

const (
	BeatStatusBeat    BeatStatus = "beat"
	BeatStatusMiss    BeatStatus = "miss"
	BeatStatusMeet    BeatStatus = "meet"
	BeatStatusUnknown BeatStatus = "unknown"
)

// Sentiment is the tone of an analyzed earnings report.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// CalendarEntry is one scheduled announcement after provider normalization.
// Entries are not modified once produced.
type CalendarEntry struct {
	Symbol          string   `json:"symbol"`
	CompanyName     string   `json:"companyName"`
	Timing          Timing   `json:"timing"`
	Date            string   `json:"date"` // YYYY-MM-DD
	ScheduledTime   string   `json:"scheduledTime,omitempty"`
	EPSEstimate     *float64 `json:"epsEstimate,omitempty"`
	RevenueEstimate *float64 `json:"revenueEstimate,omitempty"`
	EPSActual       *float64 `json:"epsActual,omitempty"`
	RevenueActual   *float64 `json:"revenueActual,omitempty"`
	Quarter         int      `json:"quarter,omitempty"`
	Year            int      `json:"year,omitempty"`
}

// Released reports whether actual EPS has been published.
func (e CalendarEntry) Released() bool {
	return e.EPSActual != nil
}

// AfterHours holds extended-session pricing.
type AfterHours struct {
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// Quote is a live price snapshot for one symbol.
type Quote struct {
	Symbol            string      `json:"symbol"`
	CurrentPrice      float64     `json:"current"`
	Change            float64     `json:"change"`
	ChangePercent     float64     `json:"changePercent"`
	DayHigh           float64     `json:"dayHigh"`
	DayLow            float64     `json:"dayLow"`
	Open              float64     `json:"open"`
	PreviousClose     float64     `json:"previousClose"`
	Timestamp         int64       `json:"timestamp"`
	AfterHours        *AfterHours `json:"afterHours,omitempty"`
	CompanyName       string      `json:"name,omitempty"`
	Industry          string      `json:"industry,omitempty"`
	Exchange          string      `json:"exchange,omitempty"`
	MarketCap         *float64    `json:"marketCap,omitempty"`
	SharesOutstanding *float64    `json:"sharesOutstanding,omitempty"`
}

// Price is the pricing block of an enriched record.
type Price struct {
	Current       float64     `json:"current"`
	Change        float64     `json:"change"`
	ChangePercent float64     `json:"changePercent"`
	AfterHours    *AfterHours `json:"afterHours,omitempty"`
}

// Estimate is the consensus expectation.
type Estimate struct {
	EPS     *float64 `json:"eps,omitempty"`
	Revenue *float64 `json:"revenue,omitempty"`
}

// Actual is the reported result alongside the estimates it is judged against.
type Actual struct {
	EPS             float64  `json:"eps"`
	Revenue         *float64 `json:"revenue,omitempty"`
	EPSEstimate     *float64 `json:"epsEstimate,omitempty"`
	RevenueEstimate *float64 `json:"revenueEstimate,omitempty"`
}

// EarningsReport is the earnings block of an enriched record.
// Actual and BeatStatus are set only when Status is released.
type EarningsReport struct {
	Status        EarningsStatus `json:"status"`
	Timing        Timing         `json:"timing"`
	ScheduledTime string         `json:"scheduledTime,omitempty"`
	Estimate      *Estimate      `json:"estimate,omitempty"`
	Actual        *Actual        `json:"actual,omitempty"`
	BeatStatus    BeatStatus     `json:"beatStatus,omitempty"`
}

// PriceBar is one daily OHLCV bar.
type PriceBar struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// EnrichedStock is a calendar entry reconciled with its live quote.
type EnrichedStock struct {
	Symbol       string         `json:"symbol"`
	CompanyName  string         `json:"companyName"`
	Industry     string         `json:"industry,omitempty"`
	MarketCap    *float64       `json:"marketCap,omitempty"`
	Price        Price          `json:"price"`
	MarketStatus MarketStatus   `json:"marketStatus"`
	Earnings     EarningsReport `json:"earnings"`
	PriceHistory []PriceBar     `json:"priceHistory"`
	LastUpdated  time.Time      `json:"lastUpdated"`
}

// ReportAnalysis is a structured summary of a published earnings report.
type ReportAnalysis struct {
	Symbol       string    `json:"symbol"`
	Summary      string    `json:"summary"`
	Sentiment    Sentiment `json:"sentiment"`
	KeyTakeaways []string  `json:"keyTakeaways"`
	ReportURL    string    `json:"reportUrl"`
	Quarter      string    `json:"quarter"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// CopyFloat returns a fresh pointer holding *p, or nil.
func CopyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// SortBars returns a copy of bars ordered oldest to newest. Dates are
// YYYY-MM-DD so string order is date order.
func SortBars(bars []PriceBar) []PriceBar {
	out := make([]PriceBar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

// Package quotes fetches live quotes for many symbols in rate-friendly chunks.
package quotes

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"earnings-tracker/internal/errors"
	"earnings-tracker/internal/logging"
	"earnings-tracker/internal/models"
	"earnings-tracker/pkg/utils"
)

const (
	// DefaultChunkSize is the number of symbols fetched together.
	DefaultChunkSize = 5
	// DefaultChunkDelay is the pause before every chunk after the first.
	DefaultChunkDelay = 500 * time.Millisecond
)

// Source fetches a single quote.
type Source interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// BatchSource fetches a chunk of quotes in one call. The result may be shorter
// than the input.
type BatchSource interface {
	Quotes(ctx context.Context, symbols []string) ([]models.Quote, error)
}

// Failure records a symbol that produced no quote.
type Failure struct {
	Symbol string
	Chunk  int
	Err    error
}

// Result is the outcome of a multi-symbol fetch. Failed symbols are absent
// from Quotes and listed in Failures; neither case is an error.
type Result struct {
	Quotes   []models.Quote
	Failures []Failure
	Chunks   int
}

// BySymbol indexes the fetched quotes.
func (r Result) BySymbol() map[string]models.Quote {
	m := make(map[string]models.Quote, len(r.Quotes))
	for _, q := range r.Quotes {
		m[q.Symbol] = q
	}
	return m
}

// FailedSymbols lists the symbols with no quote.
func (r Result) FailedSymbols() []string {
	out := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = f.Symbol
	}
	return out
}

// Fetcher splits symbol lists into chunks, fetched one chunk at a time.
type Fetcher struct {
	single     Source
	batch      BatchSource
	chunkSize  int
	chunkDelay time.Duration
	sleep      utils.SleepFunc
	logger     zerolog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithChunkSize sets symbols per chunk. Values below one keep the default.
func WithChunkSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.chunkSize = n
		}
	}
}

// WithChunkDelay sets the pause between chunks.
func WithChunkDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.chunkDelay = d
	}
}

// WithBatchSource fetches each chunk with one batch call instead of one call per symbol.
func WithBatchSource(b BatchSource) Option {
	return func(f *Fetcher) {
		f.batch = b
	}
}

// WithSleep overrides how the fetcher waits between chunks.
func WithSleep(sleep utils.SleepFunc) Option {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// WithLogger sets a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a fetcher over src.
func NewFetcher(src Source, opts ...Option) *Fetcher {
	f := &Fetcher{
		single:     src,
		chunkSize:  DefaultChunkSize,
		chunkDelay: DefaultChunkDelay,
		sleep:      utils.SleepContext,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchQuotes returns quotes for symbols, uppercased and in input order.
// Chunks run strictly one after another; symbols inside a chunk are fetched
// concurrently. A failing symbol or chunk is logged and recorded in
// Result.Failures. The only error is an empty symbol list.
//
// Cancelling ctx stops the batch before the next chunk starts; a chunk already
// in flight runs to completion.
func (f *Fetcher) FetchQuotes(ctx context.Context, symbols []string) (Result, error) {
	clean := normalizeSymbols(symbols)
	if len(clean) == 0 {
		return Result{}, errors.Wrap(errors.ErrInvalidInput, "no symbols to fetch")
	}

	chunks := Chunk(clean, f.chunkSize)
	res := Result{
		Quotes: make([]models.Quote, 0, len(clean)),
		Chunks: len(chunks),
	}
	inflight := context.WithoutCancel(ctx)

	for i, chunk := range chunks {
		if i > 0 {
			if err := f.sleep(ctx, f.chunkDelay); err != nil {
				res.Failures = append(res.Failures, abandon(chunks[i:], i, err)...)
				f.logger.Warn().Err(err).Int("chunk", i).Msg("Quote fetch cancelled between chunks")
				break
			}
		}

		start := time.Now()
		quotes, failures := f.fetchChunk(inflight, i, chunk)
		res.Quotes = append(res.Quotes, quotes...)
		res.Failures = append(res.Failures, failures...)
		logging.LogChunk(f.logger, i, len(chunk), len(quotes), time.Since(start))
	}

	if len(res.Failures) > 0 {
		f.logger.Warn().
			Int("requested", len(clean)).
			Int("fetched", len(res.Quotes)).
			Strs("failed", res.FailedSymbols()).
			Msg("Some quotes could not be fetched")
	}

	return res, nil
}

func (f *Fetcher) fetchChunk(ctx context.Context, index int, chunk []string) ([]models.Quote, []Failure) {
	if f.batch != nil {
		return f.fetchBatch(ctx, index, chunk)
	}

	type outcome struct {
		quote models.Quote
		err   error
	}
	outcomes := make([]outcome, len(chunk))

	var wg sync.WaitGroup
	for i, sym := range chunk {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			q, err := f.single.Quote(ctx, sym)
			outcomes[i] = outcome{quote: q, err: err}
		}(i, sym)
	}
	wg.Wait()

	quotes := make([]models.Quote, 0, len(chunk))
	var failures []Failure
	for i, o := range outcomes {
		if o.err != nil {
			symLogger := logging.WithSymbol(f.logger, chunk[i])
			symLogger.Warn().Err(o.err).Int("chunk", index).Msg("Quote fetch failed")
			failures = append(failures, Failure{Symbol: chunk[i], Chunk: index, Err: o.err})
			continue
		}
		o.quote.Symbol = chunk[i]
		quotes = append(quotes, o.quote)
	}
	return quotes, failures
}

func (f *Fetcher) fetchBatch(ctx context.Context, index int, chunk []string) ([]models.Quote, []Failure) {
	got, err := f.batch.Quotes(ctx, chunk)
	if err != nil {
		f.logger.Warn().Err(err).Int("chunk", index).Strs("symbols", chunk).Msg("Quote chunk failed")
		return nil, abandon([][]string{chunk}, index, err)
	}

	bySymbol := make(map[string]models.Quote, len(got))
	for _, q := range got {
		sym := strings.ToUpper(strings.TrimSpace(q.Symbol))
		q.Symbol = sym
		bySymbol[sym] = q
	}

	quotes := make([]models.Quote, 0, len(chunk))
	var failures []Failure
	for _, sym := range chunk {
		q, ok := bySymbol[sym]
		if !ok {
			failures = append(failures, Failure{
				Symbol: sym,
				Chunk:  index,
				Err:    errors.NewDataError("quote", sym, "missing from batch response", errors.ErrSymbolNotFound),
			})
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, failures
}

func abandon(chunks [][]string, first int, err error) []Failure {
	var failures []Failure
	for i, chunk := range chunks {
		for _, sym := range chunk {
			failures = append(failures, Failure{Symbol: sym, Chunk: first + i, Err: err})
		}
	}
	return failures
}

// Chunk splits symbols into consecutive groups of at most size.
func Chunk(symbols []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]string, 0, (len(symbols)+size-1)/size)
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		chunks = append(chunks, symbols[start:end])
	}
	return chunks
}

// normalizeSymbols uppercases, trims, and drops blanks and repeats.
func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

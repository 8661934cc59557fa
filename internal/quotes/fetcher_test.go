package quotes

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"earnings-tracker/internal/errors"
	"earnings-tracker/internal/models"
)

// fakeSource serves deterministic quotes and fails for symbols in fail.
type fakeSource struct {
	fail map[string]bool
}

func (s *fakeSource) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	if s.fail[symbol] {
		return models.Quote{}, errors.NewAPIError(404, "/quote", "not found", nil)
	}
	return models.Quote{Symbol: strings.ToLower(symbol), CurrentPrice: float64(len(symbol)) * 10}, nil
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

// Property 1: One failing symbol removes exactly one quote
func TestProperty1_FailureIsolation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("N symbols with one failure yield N-1 quotes", prop.ForAll(
		func(n int, k int, chunkSize int) bool {
			k = k % n
			symbols := make([]string, n)
			for i := range symbols {
				symbols[i] = fmt.Sprintf("SYM%02d", i)
			}
			src := &fakeSource{fail: map[string]bool{symbols[k]: true}}
			f := NewFetcher(src, WithChunkSize(chunkSize), WithSleep(noSleep))

			res, err := f.FetchQuotes(context.Background(), symbols)
			if err != nil || len(res.Quotes) != n-1 || len(res.Failures) != 1 {
				return false
			}
			if res.Failures[0].Symbol != symbols[k] {
				return false
			}
			// Survivors keep input order and their own data.
			j := 0
			for i, sym := range symbols {
				if i == k {
					continue
				}
				q := res.Quotes[j]
				if q.Symbol != sym || q.CurrentPrice != float64(len(sym))*10 {
					return false
				}
				j++
			}
			return res.Chunks == (n+chunkSize-1)/chunkSize
		},
		gen.IntRange(1, 25),
		gen.IntRange(0, 100),
		gen.IntRange(1, 7),
	))

	properties.TestingRun(t)
}

func TestSixSymbolsMakeTwoSequentialChunks(t *testing.T) {
	shared := &sharedLog{}
	src := loggingSource{log: shared, next: &fakeSource{}}
	f := NewFetcher(src, WithChunkSize(5), WithSleep(shared.sleep))

	symbols := []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA"}
	res, err := f.FetchQuotes(context.Background(), symbols)
	if err != nil {
		t.Fatalf("FetchQuotes() error = %v", err)
	}
	if res.Chunks != 2 {
		t.Fatalf("Chunks = %d, want 2", res.Chunks)
	}
	if len(res.Quotes) != 6 {
		t.Fatalf("got %d quotes, want 6", len(res.Quotes))
	}

	events := shared.snapshot()
	if len(events) != 7 {
		t.Fatalf("events = %v, want 6 fetches and 1 sleep", events)
	}
	if events[5] != "sleep:500ms" {
		t.Errorf("events[5] = %s, want the inter-chunk delay after the first five fetches", events[5])
	}
	firstChunk := map[string]bool{}
	for _, e := range events[:5] {
		firstChunk[e] = true
	}
	for _, sym := range symbols[:5] {
		if !firstChunk["fetch:"+sym] {
			t.Errorf("%s should be fetched in the first chunk, events = %v", sym, events)
		}
	}
	if events[6] != "fetch:NVDA" {
		t.Errorf("events[6] = %s, want fetch:NVDA", events[6])
	}
}

// sharedLog serializes fetch and sleep events into one ordered log.
type sharedLog struct {
	mu     sync.Mutex
	events []string
}

func (l *sharedLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *sharedLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *sharedLog) sleep(ctx context.Context, d time.Duration) error {
	l.add(fmt.Sprintf("sleep:%s", d))
	return ctx.Err()
}

type loggingSource struct {
	log  *sharedLog
	next Source
}

func (s loggingSource) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	s.log.add("fetch:" + symbol)
	return s.next.Quote(ctx, symbol)
}

func TestEmptyInputIsAnError(t *testing.T) {
	f := NewFetcher(&fakeSource{})
	for _, in := range [][]string{nil, {}, {"", "  "}} {
		if _, err := f.FetchQuotes(context.Background(), in); !errors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("FetchQuotes(%q) error = %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestSymbolsAreUppercasedAndDeduplicated(t *testing.T) {
	f := NewFetcher(&fakeSource{}, WithSleep(noSleep))
	res, err := f.FetchQuotes(context.Background(), []string{"aapl", " msft ", "AAPL"})
	if err != nil {
		t.Fatalf("FetchQuotes() error = %v", err)
	}
	if len(res.Quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(res.Quotes))
	}
	if res.Quotes[0].Symbol != "AAPL" || res.Quotes[1].Symbol != "MSFT" {
		t.Errorf("symbols = %s, %s", res.Quotes[0].Symbol, res.Quotes[1].Symbol)
	}
	if _, ok := res.BySymbol()["MSFT"]; !ok {
		t.Error("BySymbol() should be keyed by uppercase symbol")
	}
}

type fakeBatch struct {
	mu      sync.Mutex
	calls   [][]string
	failOn  int // 1-indexed call that errors, 0 for never
	missing map[string]bool
}

func (b *fakeBatch) Quotes(ctx context.Context, symbols []string) ([]models.Quote, error) {
	b.mu.Lock()
	b.calls = append(b.calls, symbols)
	call := len(b.calls)
	b.mu.Unlock()

	if call == b.failOn {
		return nil, errors.NewAPIError(500, "/batch-quotes", "upstream down", nil)
	}
	var out []models.Quote
	for _, s := range symbols {
		if !b.missing[s] {
			out = append(out, models.Quote{Symbol: strings.ToLower(s), CurrentPrice: 1})
		}
	}
	return out, nil
}

func TestBatchModeIsolatesChunkFailures(t *testing.T) {
	batch := &fakeBatch{failOn: 1, missing: map[string]bool{"F": true}}
	f := NewFetcher(nil, WithBatchSource(batch), WithChunkSize(3), WithSleep(noSleep))

	res, err := f.FetchQuotes(context.Background(), []string{"A", "B", "C", "D", "E", "F", "G"})
	if err != nil {
		t.Fatalf("FetchQuotes() error = %v", err)
	}
	if len(batch.calls) != 3 {
		t.Fatalf("batch calls = %d, want 3", len(batch.calls))
	}

	got := make([]string, len(res.Quotes))
	for i, q := range res.Quotes {
		got[i] = q.Symbol
	}
	if strings.Join(got, ",") != "D,E,G" {
		t.Errorf("quotes = %v, want D,E,G", got)
	}

	failed := strings.Join(res.FailedSymbols(), ",")
	if failed != "A,B,C,F" {
		t.Errorf("failures = %s, want A,B,C,F", failed)
	}
	if !errors.Is(res.Failures[3].Err, errors.ErrSymbolNotFound) {
		t.Errorf("missing symbol error = %v, want ErrSymbolNotFound", res.Failures[3].Err)
	}
	if res.Failures[0].Chunk != 0 || res.Failures[3].Chunk != 1 {
		t.Errorf("chunk indexes = %d, %d", res.Failures[0].Chunk, res.Failures[3].Chunk)
	}
}

func TestCancellationStopsBeforeNextChunk(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &cancellingSource{cancel: cancel}
	f := NewFetcher(src, WithChunkSize(2))

	res, err := f.FetchQuotes(ctx, []string{"A", "B", "C", "D", "E"})
	if err != nil {
		t.Fatalf("FetchQuotes() error = %v", err)
	}
	// The first chunk completes even though ctx was cancelled during it.
	if len(res.Quotes) != 2 {
		t.Errorf("got %d quotes, want the 2 from the first chunk", len(res.Quotes))
	}
	if len(res.Failures) != 3 {
		t.Fatalf("got %d failures, want 3 abandoned symbols", len(res.Failures))
	}
	if !errors.Is(res.Failures[0].Err, context.Canceled) {
		t.Errorf("failure error = %v, want context.Canceled", res.Failures[0].Err)
	}
}

type cancellingSource struct {
	cancel context.CancelFunc
}

func (s *cancellingSource) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	s.cancel()
	if ctx.Err() != nil {
		return models.Quote{}, ctx.Err()
	}
	return models.Quote{Symbol: symbol}, nil
}

func TestChunk(t *testing.T) {
	tests := []struct {
		n, size int
		want    []int
	}{
		{6, 5, []int{5, 1}},
		{5, 5, []int{5}},
		{0, 5, []int{}},
		{7, 3, []int{3, 3, 1}},
		{3, 0, []int{3}},
	}
	for _, tt := range tests {
		symbols := make([]string, tt.n)
		chunks := Chunk(symbols, tt.size)
		if len(chunks) != len(tt.want) {
			t.Errorf("Chunk(%d, %d) made %d chunks, want %d", tt.n, tt.size, len(chunks), len(tt.want))
			continue
		}
		for i, c := range chunks {
			if len(c) != tt.want[i] {
				t.Errorf("Chunk(%d, %d)[%d] has %d, want %d", tt.n, tt.size, i, len(c), tt.want[i])
			}
		}
	}
}

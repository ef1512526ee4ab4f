package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradewell/alphagate/internal/persistence"
	"github.com/tradewell/alphagate/internal/persistence/memory"
)

func day(s string) time.Time {
	t, err := time.Parse(persistence.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRecordSignals_ReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	rec := New(memory.NewPaperSignalRepo())

	signals := map[string]float64{"BTC-USD": 0.4, "ETH-USD": -0.2}
	require.NoError(t, rec.RecordSignals(ctx, "ind-1", day("2025-06-02"), signals))
	require.NoError(t, rec.RecordSignals(ctx, "ind-1", day("2025-06-02"), signals))

	pending, err := rec.PendingOutcomes(ctx, "ind-1")
	require.NoError(t, err)
	assert.Len(t, pending, 2, "replaying a day must not duplicate rows")
}

func TestRecordOutcomes_MatchesHorizonDate(t *testing.T) {
	ctx := context.Background()
	rec := New(memory.NewPaperSignalRepo())

	// Monday 2025-06-02; 5 trading days later is Monday 2025-06-09
	require.NoError(t, rec.RecordSignals(ctx, "ind-1", day("2025-06-02"), map[string]float64{"BTC-USD": 0.4}))

	n, err := rec.RecordOutcomes(ctx, "ind-1", day("2025-06-09"), 5, map[string]float64{"BTC-USD": 0.013})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := rec.PendingOutcomes(ctx, "ind-1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRecordOutcomes_UnmatchedSymbolsDropped(t *testing.T) {
	ctx := context.Background()
	rec := New(memory.NewPaperSignalRepo())

	require.NoError(t, rec.RecordSignals(ctx, "ind-1", day("2025-06-02"), map[string]float64{"BTC-USD": 0.4}))

	n, err := rec.RecordOutcomes(ctx, "ind-1", day("2025-06-09"), 5, map[string]float64{
		"BTC-USD": 0.01,
		"SOL-USD": 0.02,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "outcomes without a signal must not create rows")
}

func TestRecordOutcomes_RejectsNegativeHorizon(t *testing.T) {
	rec := New(memory.NewPaperSignalRepo())
	_, err := rec.RecordOutcomes(context.Background(), "ind-1", day("2025-06-09"), -1, map[string]float64{"BTC-USD": 0.01})
	require.Error(t, err)
}

func TestSubtractTradingDays(t *testing.T) {
	tests := []struct {
		name string
		from string
		n    int
		want string
	}{
		{"zero days", "2025-06-09", 0, "2025-06-09"},
		{"within a week", "2025-06-05", 3, "2025-06-02"},
		{"across one weekend", "2025-06-09", 5, "2025-06-02"},
		{"across two weekends", "2025-06-13", 10, "2025-05-30"},
		{"from a monday back one", "2025-06-09", 1, "2025-06-06"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SubtractTradingDays(day(tt.from), tt.n)
			assert.Equal(t, day(tt.want), got)
		})
	}
}

func TestTradingDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want int
	}{
		{"same day", "2025-06-09", "2025-06-09", 0},
		{"reversed range", "2025-06-09", "2025-06-02", 0},
		{"within a week", "2025-06-02", "2025-06-05", 3},
		{"across one weekend", "2025-06-02", "2025-06-09", 5},
		{"weekend endpoints", "2025-06-07", "2025-06-08", 0},
		{"thirty calendar days from a monday", "2026-06-01", "2026-07-01", 22},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TradingDaysBetween(day(tt.from), day(tt.to)))
		})
	}
}

func TestTradingDaysBetween_InvertsSubtraction(t *testing.T) {
	// Walking back n trading days and counting forward again lands on n
	start := day("2025-06-13")
	for _, n := range []int{1, 5, 10, 23} {
		back := SubtractTradingDays(start, n)
		assert.Equal(t, n, TradingDaysBetween(back, start), "n=%d", n)
	}
}

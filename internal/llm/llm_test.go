package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econ-calendar-bot/internal/types"
)

func TestParseAnswer(t *testing.T) {
	cases := map[string]string{
		"14:30 Uhr":               "14:30",
		"Um 8.00 Uhr":             "08:00",
		"Die Daten kommen 22:05.": "22:05",
		"unbekannt":               "",
		"Unbekannt, ca. 10:00":    "",
		"sometime in the morning": "",
		"25:00":                   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseAnswer(in).String(), in)
	}
}

func TestPromptMentionsRelease(t *testing.T) {
	macro := types.Macro("2024-05-03", types.TimeOfDay{}, "united states", "Nonfarm Payrolls", 3)
	assert.Contains(t, Prompt(macro), "Nonfarm Payrolls")
	assert.Contains(t, Prompt(macro), "united states")

	earn := types.Earnings("2024-05-02", types.TimeOfDay{}, "AAPL", "Apple Inc.")
	earn.TimeText = "after market close"
	assert.Contains(t, Prompt(earn), "Apple Inc. (AAPL)")
	assert.Contains(t, Prompt(earn), "after market close")
}

type stubInferrer struct {
	tod   types.TimeOfDay
	err   error
	calls int
}

func (s *stubInferrer) InferTime(context.Context, types.Release) (types.TimeOfDay, error) {
	s.calls++
	return s.tod, s.err
}

func TestChainFallsThrough(t *testing.T) {
	ctx := context.Background()
	r := types.Macro("2024-05-03", types.TimeOfDay{}, "germany", "ifo", 2)

	failing := &stubInferrer{err: errors.New("boom")}
	unknown := &stubInferrer{}
	known := &stubInferrer{tod: types.At(10, 0)}

	tod, err := Chain(failing, unknown, known).InferTime(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "10:00", tod.String())

	_, err = Chain(failing, unknown).InferTime(ctx, r)
	assert.Error(t, err)

	tod, err = Chain(unknown).InferTime(ctx, r)
	require.NoError(t, err)
	assert.False(t, tod.Known())
}

func TestCachedOnlyStoresKnownAnswers(t *testing.T) {
	ctx := context.Background()
	r := types.Macro("2024-05-03", types.TimeOfDay{}, "germany", "ifo", 2)

	next := &stubInferrer{tod: types.At(10, 0)}
	c := Cached(next)
	for i := 0; i < 3; i++ {
		tod, err := c.InferTime(ctx, r)
		require.NoError(t, err)
		assert.Equal(t, "10:00", tod.String())
	}
	assert.Equal(t, 1, next.calls)

	blank := &stubInferrer{}
	c = Cached(blank)
	c.InferTime(ctx, r)
	c.InferTime(ctx, r)
	assert.Equal(t, 2, blank.calls)
}

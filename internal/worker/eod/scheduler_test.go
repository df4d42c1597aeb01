package eod

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	preset            report.Preset
	comparison, store bool
	actor             string
}

type fakeGenerator struct {
	calls []call
	err   error
}

func (f *fakeGenerator) GeneratePreset(
	_ context.Context,
	preset report.Preset,
	includeComparison, persist bool,
	requestedBy string,
) (report.EODReport, error) {
	f.calls = append(f.calls, call{preset: preset, comparison: includeComparison, store: persist, actor: requestedBy})
	if f.err != nil {
		return report.EODReport{}, f.err
	}

	return report.EODReport{ReportNumber: 3, Persisted: true}, nil
}

func TestParseAt(t *testing.T) {
	hour, minute, err := ParseAt("23:45")
	require.NoError(t, err)
	assert.Equal(t, uint(23), hour)
	assert.Equal(t, uint(45), minute)

	for _, bad := range []string{"", "24:00", "7pm", "12:60"} {
		_, _, err := ParseAt(bad)
		assert.Error(t, err, bad)
	}
}

func TestScheduler_RunOnce(t *testing.T) {
	gen := &fakeGenerator{}
	s, err := NewScheduler(gen, "00:05", time.UTC)
	require.NoError(t, err)

	require.NoError(t, s.runOnce(context.Background()))

	require.Len(t, gen.calls, 1)
	assert.Equal(t, call{preset: report.PresetYesterday, comparison: true, store: true, actor: Actor}, gen.calls[0])
}

func TestScheduler_RunOnceError(t *testing.T) {
	boom := errors.New("storage unavailable")
	s, err := NewScheduler(&fakeGenerator{err: boom}, "00:05", nil)
	require.NoError(t, err)

	require.ErrorIs(t, s.runOnce(context.Background()), boom)
}

func TestScheduler_StartShutdown(t *testing.T) {
	s, err := NewScheduler(&fakeGenerator{}, "03:30", time.UTC)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	require.NoError(t, s.Shutdown())
}

package backtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

func plotFixture(t *testing.T, opts ...Option) *Backtester {
	t.Helper()
	actual := []float64{-0.010, 0.004, -0.035, 0.012, -0.001, -0.048, 0.019, -0.026, 0.007, -0.009}
	forecast := []float64{-0.030, -0.030, -0.030, -0.025, -0.025, -0.025, -0.020, -0.020, -0.020, -0.010}
	index := dailyIndex(len(actual))

	bt, err := New(Series{Index: index, Values: actual}, Series{Index: index, Values: forecast}, 0.05, opts...)
	require.NoError(t, err)
	return bt
}

func TestPlotWithoutFile(t *testing.T) {
	bt := plotFixture(t)
	style := DefaultPlotStyle()

	p, err := bt.Plot(style, "")
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.True(t, strings.HasPrefix(p.Title.Text, "VaR backtest"))
	assert.Contains(t, p.Title.Text, "hits = 3 of 10")
	assert.Equal(t, "Serif", string(p.Title.TextStyle.Font.Variant))
	assert.Equal(t, style.FontSize, p.X.Label.TextStyle.Font.Size)
	assert.IsType(t, text.Latex{}, p.Legend.TextStyle.Handler)

	style.LaTeX = false
	style.Title = "Desk 7"
	p, err = bt.Plot(style, "")
	require.NoError(t, err)
	assert.Equal(t, "Desk 7", p.Title.Text)
	assert.IsType(t, text.Plain{}, p.Y.Tick.Label.Handler)
}

func TestPlotSavesFile(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	bt := plotFixture(t, WithLogger(zap.New(core)))
	dir := t.TempDir()

	for _, name := range []string{"chart.png", "chart.svg"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			style := DefaultPlotStyle()
			style.Width = 6 * vg.Inch
			style.Height = 3 * vg.Inch

			p, err := bt.Plot(style, path)
			require.NoError(t, err)
			assert.NotNil(t, p)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}

	assert.Equal(t, 2, logs.FilterMessage("Chart exported").Len())
}

func TestPlotExportFailures(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bt := plotFixture(t, WithLogger(zap.New(core)))
	dir := t.TempDir()

	t.Run("unsupported extension creates no file", func(t *testing.T) {
		path := filepath.Join(dir, "chart.bmp")
		p, err := bt.Plot(DefaultPlotStyle(), path)
		require.Error(t, err)
		assert.Nil(t, p)
		assert.True(t, IsErrorCode(err, ErrExportFailed))

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("missing extension", func(t *testing.T) {
		_, err := bt.Plot(DefaultPlotStyle(), filepath.Join(dir, "chart"))
		assert.True(t, IsErrorCode(err, ErrExportFailed))
	})

	t.Run("missing directory propagates file system error", func(t *testing.T) {
		path := filepath.Join(dir, "does", "not", "exist", "chart.png")
		p, err := bt.Plot(DefaultPlotStyle(), path)
		require.Error(t, err)
		assert.Nil(t, p)
		assert.True(t, IsErrorCode(err, ErrExportFailed))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	assert.Equal(t, 2, logs.FilterMessage("Chart export rejected").Len())
	assert.Equal(t, 1, logs.FilterMessage("Chart export failed").Len())
}

func TestPlotZeroSizeFallsBackToDefault(t *testing.T) {
	bt := plotFixture(t)
	path := filepath.Join(t.TempDir(), "chart.png")

	_, err := bt.Plot(PlotStyle{}, path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestPlotTextWithLatexMarkup(t *testing.T) {
	bt := plotFixture(t)
	dir := t.TempDir()

	tests := []struct {
		name       string
		title      string
		timeFormat string
	}{
		{"subscript in title", "VaR_99", ""},
		{"markup in title", "VaR_99 at 5% {x}^2", ""},
		{"markup in time format", "", "2006_01_02"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			style := DefaultPlotStyle()
			style.Title = tt.title
			if tt.timeFormat != "" {
				style.TimeFormat = tt.timeFormat
			}
			path := filepath.Join(dir, fmt.Sprintf("chart_%d.pdf", i))

			var p *plot.Plot
			var err error
			require.NotPanics(t, func() {
				p, err = bt.Plot(style, path)
			})
			require.NoError(t, err)
			if tt.title != "" {
				assert.Equal(t, tt.title, p.Title.Text)
				assert.IsType(t, text.Plain{}, p.Title.TextStyle.Handler)
			}
			if tt.timeFormat != "" {
				assert.IsType(t, text.Plain{}, p.X.Tick.Label.Handler)
			}
			assert.IsType(t, text.Latex{}, p.Legend.TextStyle.Handler)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}
}

func TestRecoverRenderTurnsPanicIntoError(t *testing.T) {
	render := func() (err error) {
		defer recoverRender(&err)
		panic("unknown ast node")
	}

	err := render()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render chart: unknown ast node")

	wrapped := newExportError("backtest.Plot", "chart.pdf", err)
	assert.True(t, IsErrorCode(wrapped, ErrExportFailed))
}

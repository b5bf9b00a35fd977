package backtest

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PlotStyle carries every presentation setting for Plot. Nothing is read from
// or written to package-level plot defaults.
type PlotStyle struct {
	Width        vg.Length `json:"width"`
	Height       vg.Length `json:"height"`
	Typeface     string    `json:"typeface"`
	Variant      string    `json:"variant"`
	FontSize     vg.Length `json:"font_size"`
	LaTeX        bool      `json:"latex"`
	DPI          float64   `json:"dpi"`
	Grid         bool      `json:"grid"`
	MarkBreaches bool      `json:"mark_breaches"`
	TimeFormat   string    `json:"time_format"`
	Title        string    `json:"title"`
}

// DefaultPlotStyle returns a serif, grid-backed, LaTeX-rendered style
func DefaultPlotStyle() PlotStyle {
	return PlotStyle{
		Width:        10 * vg.Inch,
		Height:       4 * vg.Inch,
		Typeface:     "Liberation",
		Variant:      "Serif",
		FontSize:     vg.Points(12),
		LaTeX:        true,
		DPI:          72,
		Grid:         true,
		MarkBreaches: true,
		TimeFormat:   "2006-01-02",
	}
}

var (
	actualColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	forecastColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	breachColor   = color.RGBA{A: 255}
)

// latexSpecials are the characters go-latex treats as markup
const latexSpecials = "\\$_^{}%#&~"

var exportFormats = map[string]bool{
	"eps": true, "jpg": true, "jpeg": true, "pdf": true, "png": true,
	"svg": true, "tex": true, "tif": true, "tiff": true,
}

// Plot draws actual against forecast over the time index. When fileName is
// empty the chart is only built and returned; otherwise it is also saved, in
// the format named by the file extension.
func (b *Backtester) Plot(style PlotStyle, fileName string) (*plot.Plot, error) {
	const op = "backtest.Plot"

	if fileName != "" {
		format := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
		if !exportFormats[format] {
			err := newExportError(op, fileName, fmt.Errorf("unsupported image format %q", format))
			b.logger.Error("Chart export rejected", zap.String("file", fileName), zap.Error(err))
			return nil, err
		}
	}

	p, err := b.buildPlot(style)
	if err != nil {
		return nil, newExportError(op, fileName, err)
	}

	if fileName == "" {
		return p, nil
	}

	width, height := style.Width, style.Height
	if width <= 0 || height <= 0 {
		defaults := DefaultPlotStyle()
		width, height = defaults.Width, defaults.Height
	}

	if err := saveChart(p, width, height, fileName); err != nil {
		exportErr := newExportError(op, fileName, err)
		b.logger.Error("Chart export failed", zap.String("file", fileName), zap.Error(err))
		return nil, exportErr
	}

	b.logger.Info("Chart exported",
		zap.String("file", fileName),
		zap.Int("observations", b.Len()),
		zap.Int("hits", b.NumberOfHits()),
	)
	return p, nil
}

func (b *Backtester) buildPlot(style PlotStyle) (*plot.Plot, error) {
	p := plot.New()

	title := style.Title
	if title == "" {
		title = fmt.Sprintf("VaR backtest (alpha = %g, hits = %d of %d)", b.alpha, b.NumberOfHits(), b.Len())
	}
	p.Title.Text = title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Value"
	timeFormat := style.TimeFormat
	if timeFormat == "" {
		timeFormat = "2006-01-02"
	}
	p.X.Tick.Marker = plot.TimeTicks{Format: timeFormat}

	handler := style.textHandler()
	for _, ts := range []*text.Style{
		&p.Title.TextStyle,
		&p.X.Label.TextStyle, &p.Y.Label.TextStyle,
		&p.X.Tick.Label, &p.Y.Tick.Label,
		&p.Legend.TextStyle,
	} {
		style.applyText(ts, handler)
	}

	// Caller text with markup characters stays plain so it renders verbatim.
	if style.LaTeX {
		plain := text.Plain{Fonts: font.DefaultCache}
		if strings.ContainsAny(title, latexSpecials) {
			p.Title.TextStyle.Handler = plain
		}
		if strings.ContainsAny(timeFormat, latexSpecials) {
			p.X.Tick.Label.Handler = plain
		}
	}

	if style.Grid {
		p.Add(plotter.NewGrid())
	}

	actual, err := plotter.NewLine(b.points(b.actual))
	if err != nil {
		return nil, err
	}
	actual.LineStyle.Color = actualColor
	actual.LineStyle.Width = vg.Points(1)

	forecast, err := plotter.NewLine(b.points(b.forecast))
	if err != nil {
		return nil, err
	}
	forecast.LineStyle.Color = forecastColor
	forecast.LineStyle.Width = vg.Points(1)
	forecast.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(actual, forecast)
	p.Legend.Add("Actual", actual)
	p.Legend.Add("Forecast", forecast)
	p.Legend.Top = true

	if style.MarkBreaches {
		if breaches := b.HitIndices(); len(breaches) > 0 {
			xys := make(plotter.XYs, len(breaches))
			for i, pos := range breaches {
				xys[i] = plotter.XY{X: b.unixSeconds(pos), Y: b.actual[pos]}
			}
			scatter, err := plotter.NewScatter(xys)
			if err != nil {
				return nil, err
			}
			scatter.GlyphStyle.Shape = draw.CrossGlyph{}
			scatter.GlyphStyle.Color = breachColor
			scatter.GlyphStyle.Radius = vg.Points(3)
			p.Add(scatter)
			p.Legend.Add("Breach", scatter)
		}
	}

	return p, nil
}

// saveChart renders p to fileName, turning a renderer panic into an error.
func saveChart(p *plot.Plot, width, height vg.Length, fileName string) (err error) {
	defer recoverRender(&err)
	return p.Save(width, height, fileName)
}

func recoverRender(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("render chart: %v", r)
	}
}

func (b *Backtester) points(values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i] = plotter.XY{X: b.unixSeconds(i), Y: v}
	}
	return xys
}

func (b *Backtester) unixSeconds(pos int) float64 {
	return float64(b.index[pos].UnixNano()) / 1e9
}

func (s PlotStyle) textHandler() text.Handler {
	if s.LaTeX {
		return text.Latex{Fonts: font.DefaultCache, DPI: s.DPI}
	}
	return text.Plain{Fonts: font.DefaultCache}
}

func (s PlotStyle) applyText(ts *text.Style, handler text.Handler) {
	if s.Typeface != "" {
		ts.Font.Typeface = font.Typeface(s.Typeface)
	}
	if s.FontSize > 0 {
		ts.Font.Size = s.FontSize
	}
	if s.Variant != "" {
		ts.Font.Variant = font.Variant(s.Variant)
	}
	ts.Handler = handler
}

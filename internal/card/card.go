package card

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"time"

	"github.com/golang/freetype/truetype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2/drawing"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"sol-price-alerts/internal/alert"
	"sol-price-alerts/internal/assets"
)

// BackgroundStyle selects how the card backdrop is painted.
type BackgroundStyle string

const (
	BackgroundGradient BackgroundStyle = "gradient"
	BackgroundSolid    BackgroundStyle = "solid"
	BackgroundImage    BackgroundStyle = "image"
)

var (
	colorMatte     = color.RGBA{R: 28, G: 18, B: 64, A: 255}
	gradientTop    = color.RGBA{R: 48, G: 34, B: 110, A: 255}
	gradientBottom = color.RGBA{R: 88, G: 64, B: 180, A: 255}
	colorPrice     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorHeader    = color.RGBA{R: 230, G: 230, B: 255, A: 255}
	colorDelta     = color.RGBA{R: 220, G: 235, B: 255, A: 255}
	colorFooter    = color.RGBA{R: 220, G: 220, B: 240, A: 255}
	colorAccent    = color.RGBA{R: 245, G: 245, B: 255, A: 255}
)

// Options parameterise the renderer. Zero values fall back to the
// notification card defaults (1200x628 gradient canvas).
type Options struct {
	Width  int
	Height int

	Background BackgroundStyle
	ImagePath  string // BackgroundImage: scaled to the canvas

	CornerRadius int

	Header     string // top-left symbol line
	FooterText string // footer prefix, timestamp is appended

	// Price label autosizing: start at MaxFontSize and shrink by
	// FontSizeStep until the label fits MaxLabelWidth, stopping at
	// MinFontSize.
	MaxLabelWidth int
	MaxFontSize   float64
	MinFontSize   float64
	FontSizeStep  float64

	BoldFontPaths    []string
	RegularFontPaths []string

	// Now supplies the footer timestamp; defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1200
	}
	if o.Height <= 0 {
		o.Height = 628
	}
	if o.Background == "" {
		o.Background = BackgroundGradient
	}
	if o.MaxLabelWidth <= 0 {
		o.MaxLabelWidth = o.Width - 200
	}
	if o.MaxFontSize <= 0 {
		o.MaxFontSize = 150
	}
	if o.MinFontSize <= 0 {
		o.MinFontSize = 40
	}
	if o.FontSizeStep <= 0 {
		o.FontSizeStep = 10
	}
	if o.FooterText == "" {
		o.FooterText = "Auto Update"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Renderer produces notification card images.
type Renderer struct {
	opts    Options
	bold    *truetype.Font
	regular *truetype.Font
	logger  zerolog.Logger
}

// NewRenderer resolves fonts and builds a renderer. Missing font files
// fall back to the built-in face; only a broken built-in face errors.
func NewRenderer(opts Options, logger zerolog.Logger) (*Renderer, error) {
	log := logger.With().Str("component", "card_renderer").Logger()
	opts = opts.withDefaults()

	bold, err := assets.ResolveFont(opts.BoldFontPaths, log)
	if err != nil {
		return nil, fmt.Errorf("resolve bold font: %w", err)
	}
	regular, err := assets.ResolveFont(opts.RegularFontPaths, log)
	if err != nil {
		return nil, fmt.Errorf("resolve regular font: %w", err)
	}

	return &Renderer{opts: opts, bold: bold, regular: regular, logger: log}, nil
}

// Render draws the card for one decision: autosized price label,
// direction indicator, delta line, and footer over the configured
// background. The output is always an opaque PNG of exactly the
// configured canvas size.
func (r *Renderer) Render(price, delta decimal.Decimal, dir alert.Direction) ([]byte, error) {
	w, h := r.opts.Width, r.opts.Height
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	r.paintBackground(canvas)

	if r.opts.Header != "" {
		face := newFace(r.regular, 46)
		drawText(canvas, face, r.opts.Header, 60, 50+face.Metrics().Ascent.Ceil(), colorHeader)
	}

	label := FormatUSD(price)
	face, _, labelWidth := r.fitFace(r.bold, label, r.opts.MaxLabelWidth)
	drawText(canvas, face, label, (w-labelWidth)/2, baselineFor(face, h/2-40), colorPrice)

	deltaText := FormatSignedDelta(delta) + " since last alert"
	deltaFace := newFace(r.regular, 46)
	deltaWidth := font.MeasureString(deltaFace, deltaText).Ceil()
	drawText(canvas, deltaFace, deltaText, (w-deltaWidth)/2, baselineFor(deltaFace, h/2+100), colorDelta)

	if err := drawIndicator(canvas, dir); err != nil {
		return nil, fmt.Errorf("draw direction indicator: %w", err)
	}

	footer := fmt.Sprintf("%s • %s", r.opts.FooterText, r.opts.Now().UTC().Format("2006-01-02 15:04 UTC"))
	footerFace := newFace(r.regular, 36)
	footerWidth := font.MeasureString(footerFace, footer).Ceil()
	drawText(canvas, footerFace, footer, (w-footerWidth)/2, h-50, colorFooter)

	out := r.flatten(canvas)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) paintBackground(canvas *image.RGBA) {
	switch r.opts.Background {
	case BackgroundSolid:
		stddraw.Draw(canvas, canvas.Bounds(), image.NewUniform(colorMatte), image.Point{}, stddraw.Src)
	case BackgroundImage:
		if r.paintImageBackground(canvas) {
			return
		}
		// Missing or unreadable banner never fails the run.
		r.paintGradient(canvas)
	default:
		r.paintGradient(canvas)
	}
}

func (r *Renderer) paintGradient(canvas *image.RGBA) {
	b := canvas.Bounds()
	h := b.Dy()
	for y := 0; y < h; y++ {
		t := float64(y) / float64(h)
		row := color.RGBA{
			R: lerp(gradientTop.R, gradientBottom.R, t),
			G: lerp(gradientTop.G, gradientBottom.G, t),
			B: lerp(gradientTop.B, gradientBottom.B, t),
			A: 255,
		}
		for x := 0; x < b.Dx(); x++ {
			canvas.SetRGBA(x, y, row)
		}
	}
}

func (r *Renderer) paintImageBackground(canvas *image.RGBA) bool {
	f, err := os.Open(r.opts.ImagePath)
	if err != nil {
		r.logger.Warn().Str("path", r.opts.ImagePath).Err(err).Msg("background image unavailable")
		return false
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		r.logger.Warn().Str("path", r.opts.ImagePath).Err(err).Msg("background image undecodable")
		return false
	}

	xdraw.CatmullRom.Scale(canvas, canvas.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return true
}

// flatten composites the canvas onto an opaque matte, masking out the
// corners when a radius is configured so no colored square corner can
// leak into the final image.
func (r *Renderer) flatten(canvas *image.RGBA) *image.RGBA {
	if r.opts.CornerRadius <= 0 {
		return canvas
	}

	b := canvas.Bounds()
	out := image.NewRGBA(b)
	stddraw.Draw(out, b, image.NewUniform(colorMatte), image.Point{}, stddraw.Src)
	mask := roundedMask(b.Dx(), b.Dy(), r.opts.CornerRadius)
	stddraw.DrawMask(out, b, canvas, image.Point{}, mask, image.Point{}, stddraw.Over)
	return out
}

// fitFace shrinks the font size in fixed decrements until text fits
// maxWidth, returning the chosen face, size, and measured width. The
// floor size is used when nothing fits.
func (r *Renderer) fitFace(f *truetype.Font, text string, maxWidth int) (font.Face, float64, int) {
	for size := r.opts.MaxFontSize; size >= r.opts.MinFontSize; size -= r.opts.FontSizeStep {
		face := newFace(f, size)
		if w := font.MeasureString(face, text).Ceil(); w <= maxWidth {
			return face, size, w
		}
	}
	face := newFace(f, r.opts.MinFontSize)
	return face, r.opts.MinFontSize, font.MeasureString(face, text).Ceil()
}

func drawIndicator(canvas *image.RGBA, dir alert.Direction) error {
	gc, err := drawing.NewRasterGraphicContext(canvas)
	if err != nil {
		return err
	}

	gc.SetStrokeColor(colorAccent)
	gc.SetFillColor(colorAccent)
	gc.SetLineWidth(10)

	switch dir {
	case alert.DirectionUp:
		gc.MoveTo(80, 140)
		gc.LineTo(220, 80)
		gc.Stroke()
		gc.MoveTo(220, 80)
		gc.LineTo(200, 78)
		gc.LineTo(212, 92)
		gc.Close()
		gc.Fill()
	case alert.DirectionDown:
		gc.MoveTo(80, 80)
		gc.LineTo(220, 140)
		gc.Stroke()
		gc.MoveTo(220, 140)
		gc.LineTo(200, 138)
		gc.LineTo(212, 152)
		gc.Close()
		gc.Fill()
	default:
		gc.MoveTo(80, 110)
		gc.LineTo(220, 110)
		gc.Stroke()
	}
	return nil
}

func newFace(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func drawText(dst *image.RGBA, face font.Face, s string, x, y int, col color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// baselineFor vertically centers a line of text on centerY.
func baselineFor(face font.Face, centerY int) int {
	m := face.Metrics()
	return centerY + (m.Ascent.Ceil()-m.Descent.Ceil())/2
}

func roundedMask(w, h, radius int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	r2 := radius * radius
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if insideRounded(x, y, w, h, radius, r2) {
				mask.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return mask
}

func insideRounded(x, y, w, h, radius, r2 int) bool {
	var cx, cy int
	switch {
	case x < radius && y < radius:
		cx, cy = radius, radius
	case x >= w-radius && y < radius:
		cx, cy = w-radius-1, radius
	case x < radius && y >= h-radius:
		cx, cy = radius, h-radius-1
	case x >= w-radius && y >= h-radius:
		cx, cy = w-radius-1, h-radius-1
	default:
		return true
	}
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= r2
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

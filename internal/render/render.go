package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"deadticker/internal/metrics"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 1024

	// SubjectMaxWidth is the pixel budget for the engraved subject line. It
	// does not scale with the canvas.
	SubjectMaxWidth = 700
)

var (
	colorHereLies = color.RGBA{0x2c, 0x2c, 0x2e, 0xff}
	colorShadow   = color.RGBA{0x2a, 0x2a, 0x2c, 0xff}
	colorEngraved = color.RGBA{0xd0, 0xd0, 0xd2, 0xff}
	colorEpitaph  = color.RGBA{0x2e, 0x2e, 0x30, 0xff}
	colorGain     = color.RGBA{0x1f, 0xbf, 0x6a, 0xff}
	colorLoss     = color.RGBA{0xe0, 0x53, 0x53, 0xff}
	colorBgTop    = color.RGBA{0x1b, 0x1b, 0x1b, 0xff}
	colorBgBottom = color.RGBA{0x0e, 0x0e, 0x0e, 0xff}
	colorClear    = color.NRGBA{0, 0, 0, 0}
	colorVignette = color.NRGBA{0, 0, 0, 166}
)

// Options describes one tombstone. Empty Epitaph means pick one from the
// subject; nil PercentChange means no footer; empty TemplatePath means the
// synthesized background.
type Options struct {
	Subject       string
	Epitaph       string
	PercentChange *float64
	TemplatePath  string
}

// Renderer draws tombstones with a regular face for captions and a bold face
// for the subject.
type Renderer struct {
	regular *truetype.Font
	bold    *truetype.Font
}

// New loads the given TTF files. An empty path selects the bundled Go font.
func New(regularPath, boldPath string) (*Renderer, error) {
	regular, err := loadFont(regularPath, goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("regular font: %w", err)
	}
	bold, err := loadFont(boldPath, gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("bold font: %w", err)
	}
	return &Renderer{regular: regular, bold: bold}, nil
}

func loadFont(path string, fallback []byte) (*truetype.Font, error) {
	data := fallback
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return truetype.Parse(data)
}

func face(f *truetype.Font, px int) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: float64(px), Hinting: font.HintingNone})
}

// px scales a size given for a 1024px-high canvas to height, never below 12.
func px(p, height int) int {
	v := int(math.Round(float64(p) / 1024 * float64(height)))
	if v < 12 {
		return 12
	}
	return v
}

// FitFontSize walks down from maxPx in steps of 2 and returns the first size
// whose measured width fits maxWidth, or minPx when none does.
func FitFontSize(measure func(px int) float64, maxWidth float64, maxPx, minPx int) int {
	for size := maxPx; size >= minPx; size -= 2 {
		if measure(size) <= maxWidth {
			return size
		}
	}
	return minPx
}

// FitSubject returns the font size chosen for an already normalized subject
// on a canvas of the given height, and the width the subject takes at it.
func (r *Renderer) FitSubject(subject string, height int) (int, float64) {
	dc := gg.NewContext(1, 1)
	measure := func(size int) float64 {
		dc.SetFontFace(face(r.bold, size))
		w, _ := dc.MeasureString(subject)
		return w
	}
	size := FitFontSize(measure, SubjectMaxWidth, px(120, height), px(24, height))
	return size, measure(size)
}

// Render draws the tombstone and returns it PNG encoded. Identical options
// produce identical bytes.
func (r *Renderer) Render(opts Options) ([]byte, error) {
	start := time.Now()
	defer metrics.ObserveRenderDuration(start)

	tmpl := loadTemplate(opts.TemplatePath)
	w, h := DefaultWidth, DefaultHeight
	if tmpl != nil {
		b := tmpl.Bounds()
		w, h = b.Dx(), b.Dy()
	}
	dc := gg.NewContext(w, h)
	fw, fh := float64(w), float64(h)

	if tmpl != nil {
		b := tmpl.Bounds()
		dc.DrawImage(tmpl, -b.Min.X, -b.Min.Y)
	} else {
		bg := gg.NewLinearGradient(0, 0, 0, fh)
		bg.AddColorStop(0, colorBgTop)
		bg.AddColorStop(1, colorBgBottom)
		dc.SetFillStyle(bg)
		dc.DrawRectangle(0, 0, fw, fh)
		dc.Fill()
	}

	vignette := gg.NewRadialGradient(fw/2, fh/2, fw/3, fw/2, fh/2, math.Max(fw, fh)/1.1)
	vignette.AddColorStop(0, colorClear)
	vignette.AddColorStop(1, colorVignette)
	dc.SetFillStyle(vignette)
	dc.DrawRectangle(0, 0, fw, fh)
	dc.Fill()

	subject := NormalizeSubject(opts.Subject)
	epitaph := opts.Epitaph
	if epitaph == "" {
		epitaph = PickEpitaph(subject)
	}
	cx := fw / 2

	dc.SetFontFace(face(r.regular, px(32, h)))
	dc.SetColor(colorHereLies)
	dc.DrawStringAnchored("HERE LIES", cx, math.Round(fh*0.26), 0.5, 0.5)

	size, _ := r.FitSubject(subject, h)
	sy := math.Round(fh * 0.39)
	dc.SetFontFace(face(r.bold, size))
	dc.SetColor(colorShadow)
	dc.DrawStringAnchored(subject, cx+4, sy+4, 0.5, 0.5)
	dc.SetColor(colorEngraved)
	dc.DrawStringAnchored(subject, cx, sy, 0.5, 0.5)

	dc.SetFontFace(face(r.regular, px(36, h)))
	dc.SetColor(colorEpitaph)
	dc.DrawStringAnchored(epitaph, cx, math.Round(fh*0.5), 0.5, 0.5)

	if opts.PercentChange != nil {
		pct := *opts.PercentChange
		dc.SetFontFace(face(r.regular, px(28, h)))
		if pct >= 0 {
			dc.SetColor(colorGain)
		} else {
			dc.SetColor(colorLoss)
		}
		dc.DrawStringAnchored(FooterText(pct), cx, math.Round(fh*0.86), 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// FooterText formats the day's move, e.g. "+12.5% today" or "-3.0% today".
func FooterText(pct float64) string {
	sign := ""
	if pct > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1f%% today", sign, pct)
}

// loadTemplate returns nil when path is empty or unreadable so the caller
// falls back to the gradient.
func loadTemplate(path string) image.Image {
	if path == "" {
		return nil
	}
	img, err := gg.LoadImage(path)
	if err != nil {
		return nil
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil
	}
	return img
}

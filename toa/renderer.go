package toa

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PlotConfig controls the top-down (x, y) scatter render of an array and its
// estimates. Depth is flattened; the plot is a deployment-geometry sanity
// check, not a 3D view.
type PlotConfig struct {
	Width   int     // output width in pixels
	Height  int     // output height in pixels
	Padding float64 // world-unit padding around the data bounds
}

// DefaultPlotConfig returns the render defaults.
func DefaultPlotConfig() PlotConfig {
	return PlotConfig{
		Width:   800,
		Height:  600,
		Padding: 2.0,
	}
}

// branch colors: receivers blue, "single" green, "+" red, "-" orange
var (
	receiverColor = color.NRGBA{0, 0, 139, 255}
	singleColor   = color.NRGBA{0, 160, 0, 255}
	plusColor     = color.NRGBA{200, 0, 0, 255}
	minusColor    = color.NRGBA{230, 140, 0, 255}
)

func branchColor(eq string) color.NRGBA {
	switch eq {
	case EqPlus:
		return plusColor
	case EqMinus:
		return minusColor
	default:
		return singleColor
	}
}

// RenderScatterPNG draws receivers (labeled squares) and estimates (crosses
// colored by branch) into a PNG file.
func RenderScatterPNG(path string, receivers ReceiverArray, estimates []Estimate, cfg PlotConfig) error {
	img := renderScatter(receivers, estimates, cfg)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating plot file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding plot PNG: %w", err)
	}
	return nil
}

func renderScatter(receivers ReceiverArray, estimates []Estimate, cfg PlotConfig) *image.RGBA {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg = DefaultPlotConfig()
	}

	minX, minY, maxX, maxY := scatterBounds(receivers, estimates, cfg.Padding)
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))

	// White background
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	spanX := maxX - minX
	spanY := maxY - minY
	toPixel := func(p Point3) (int, int) {
		px := int((p.X - minX) / spanX * float64(cfg.Width-1))
		// flip Y so larger y renders upward
		py := int((maxY - p.Y) / spanY * float64(cfg.Height-1))
		return px, py
	}

	for _, rx := range receivers {
		px, py := toPixel(rx.Position)
		drawSquare(img, px, py, 4, receiverColor)
		drawLabel(img, px+6, py-6, rx.Label, color.NRGBA{0, 0, 0, 255})
	}

	for _, e := range estimates {
		px, py := toPixel(e.Position())
		drawCross(img, px, py, 5, branchColor(e.Eq))
	}

	return img
}

// scatterBounds computes the world-space bounding box of everything drawn.
func scatterBounds(receivers ReceiverArray, estimates []Estimate, padding float64) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)

	include := func(x, y float64) {
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	for _, rx := range receivers {
		include(rx.Position.X, rx.Position.Y)
	}
	for _, e := range estimates {
		include(e.X, e.Y)
	}
	if math.IsInf(minX, 1) {
		minX, minY, maxX, maxY = 0, 0, 1, 1
	}

	minX -= padding
	minY -= padding
	maxX += padding
	maxY += padding
	if maxX == minX {
		maxX = minX + 1
	}
	if maxY == minY {
		maxY = minY + 1
	}
	return
}

func drawSquare(img *image.RGBA, cx, cy, half int, c color.NRGBA) {
	for y := cy - half; y <= cy+half; y++ {
		for x := cx - half; x <= cx+half; x++ {
			setPixel(img, x, y, c)
		}
	}
}

func drawCross(img *image.RGBA, cx, cy, arm int, c color.NRGBA) {
	for d := -arm; d <= arm; d++ {
		setPixel(img, cx+d, cy+d, c)
		setPixel(img, cx+d, cy-d, c)
	}
}

func setPixel(img *image.RGBA, x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}

// drawLabel renders text using the built-in bitmap font.
func drawLabel(img *image.RGBA, x, y int, text string, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

package toa

import (
	"fmt"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// VectorPlot renders the same top-down scatter as the raster renderer, but
// as resolution-independent vector output (SVG, or PNG rasterized at a
// configurable DPI).
type VectorPlot struct {
	Receivers  ReceiverArray
	Estimates  []Estimate
	Padding    float64           // world-unit padding around the data bounds
	Scale      float64           // canvas millimeters per world unit
	Resolution canvas.Resolution // PNG output resolution
}

// NewVectorPlot creates a vector plot with default settings.
func NewVectorPlot(receivers ReceiverArray, estimates []Estimate) *VectorPlot {
	return &VectorPlot{
		Receivers:  receivers,
		Estimates:  estimates,
		Padding:    2.0,
		Scale:      10.0,
		Resolution: canvas.DPI(150),
	}
}

// canvasRenderer is the interface both the svg and rasterizer backends implement.
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the scatter as an SVG to the provided writer.
func (p *VectorPlot) RenderToSVG(w io.Writer) error {
	width, height, toCanvas := p.layout()

	svgRenderer := svg.New(w, width, height, nil)
	p.renderScene(svgRenderer, width, height, toCanvas)
	if err := svgRenderer.Close(); err != nil {
		return fmt.Errorf("closing SVG renderer: %w", err)
	}
	return nil
}

// RenderToPNG rasterizes the scatter and writes it as a PNG.
func (p *VectorPlot) RenderToPNG(w io.Writer) error {
	width, height, toCanvas := p.layout()

	rast := rasterizer.New(width, height, p.Resolution, canvas.DefaultColorSpace)
	p.renderScene(rast, width, height, toCanvas)
	return png.Encode(w, rast)
}

// RenderToFile picks the backend from the format string ("svg" or "png").
func (p *VectorPlot) RenderToFile(path, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating plot file: %w", err)
	}
	defer f.Close()

	switch format {
	case "svg":
		return p.RenderToSVG(f)
	case "png", "":
		return p.RenderToPNG(f)
	default:
		return fmt.Errorf("unknown plot format %q", format)
	}
}

// layout computes the canvas size and the world-to-canvas mapping.
func (p *VectorPlot) layout() (width, height float64, toCanvas func(x, y float64) (float64, float64)) {
	minX, minY, maxX, maxY := scatterBounds(p.Receivers, p.Estimates, p.Padding)

	scale := p.Scale
	if scale <= 0 {
		scale = 10.0
	}
	width = (maxX - minX) * scale
	height = (maxY - minY) * scale
	if width < 10 {
		width = 10
	}
	if height < 10 {
		height = 10
	}

	toCanvas = func(x, y float64) (float64, float64) {
		return (x - minX) * scale, (y - minY) * scale
	}
	return width, height, toCanvas
}

func (p *VectorPlot) renderScene(r canvasRenderer, width, height float64, toCanvas func(x, y float64) (float64, float64)) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	r.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	markerRadius := math.Max(width, height) / 200

	rxStyle := canvas.DefaultStyle
	rxStyle.Fill = canvas.Paint{Color: nrgbaToRGBA(receiverColor)}
	rxStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
	for _, rx := range p.Receivers {
		cx, cy := toCanvas(rx.Position.X, rx.Position.Y)
		path := canvas.Circle(markerRadius)
		path = path.Translate(cx, cy)
		r.RenderPath(path, rxStyle, canvas.Identity)
	}

	for _, e := range p.Estimates {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: canvas.Transparent}
		style.Stroke = canvas.Paint{Color: nrgbaToRGBA(branchColor(e.Eq))}
		style.StrokeWidth = markerRadius / 2

		cx, cy := toCanvas(e.X, e.Y)
		cross := &canvas.Path{}
		cross.MoveTo(cx-markerRadius, cy-markerRadius)
		cross.LineTo(cx+markerRadius, cy+markerRadius)
		cross.MoveTo(cx-markerRadius, cy+markerRadius)
		cross.LineTo(cx+markerRadius, cy-markerRadius)
		r.RenderPath(cross, style, canvas.Identity)
	}
}

// nrgbaToRGBA premultiplies alpha, which the canvas library expects.
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

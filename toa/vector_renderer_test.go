package toa

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVectorPlot_RenderToSVG(t *testing.T) {
	plot := NewVectorPlot(tetraArray(), []Estimate{
		{ID: "e1", X: 2, Y: 3, Z: 1, Eq: EqPlus},
		{ID: "e2", X: 5, Y: 5, Z: 2, Eq: EqSingle},
	})

	var buf bytes.Buffer
	if err := plot.RenderToSVG(&buf); err != nil {
		t.Fatalf("RenderToSVG: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<svg") {
		t.Error("output does not look like SVG")
	}
}

func TestVectorPlot_RenderToPNG(t *testing.T) {
	plot := NewVectorPlot(tetraArray(), []Estimate{
		{ID: "e1", X: 2, Y: 3, Z: 1, Eq: EqMinus},
	})

	var buf bytes.Buffer
	if err := plot.RenderToPNG(&buf); err != nil {
		t.Fatalf("RenderToPNG: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Errorf("decoding rasterized plot: %v", err)
	}
}

func TestVectorPlot_RenderToFile(t *testing.T) {
	plot := NewVectorPlot(tetraArray(), nil)
	dir := t.TempDir()

	t.Run("svg", func(t *testing.T) {
		path := filepath.Join(dir, "plot.svg")
		if err := plot.RenderToFile(path, "svg"); err != nil {
			t.Fatalf("RenderToFile: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading plot: %v", err)
		}
		if !strings.Contains(string(data), "<svg") {
			t.Error("file does not look like SVG")
		}
	})

	t.Run("png default", func(t *testing.T) {
		path := filepath.Join(dir, "plot.png")
		if err := plot.RenderToFile(path, ""); err != nil {
			t.Fatalf("RenderToFile: %v", err)
		}
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("opening plot: %v", err)
		}
		defer f.Close()
		if _, err := png.Decode(f); err != nil {
			t.Errorf("decoding plot: %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if err := plot.RenderToFile(filepath.Join(dir, "plot.bmp"), "bmp"); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestVectorPlot_LayoutMapsWorldToCanvas(t *testing.T) {
	plot := NewVectorPlot(ReceiverArray{
		{Label: "A", Position: Point3{0, 0, 0}},
		{Label: "B", Position: Point3{10, 10, 0}},
	}, nil)
	plot.Padding = 0
	plot.Scale = 2.0

	width, height, toCanvas := plot.layout()
	if width != 20 || height != 20 {
		t.Errorf("canvas = %gx%g, want 20x20", width, height)
	}

	// World min corner maps to canvas origin, max corner to the far corner.
	if x, y := toCanvas(0, 0); x != 0 || y != 0 {
		t.Errorf("toCanvas(0,0) = (%g,%g), want (0,0)", x, y)
	}
	if x, y := toCanvas(10, 10); x != 20 || y != 20 {
		t.Errorf("toCanvas(10,10) = (%g,%g), want (20,20)", x, y)
	}
}

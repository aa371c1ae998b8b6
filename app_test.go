package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lauren2018/toal/toa"
)

// Helper to write a four-receiver tetrahedral array CSV
func writeTestReceivers(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "receivers.csv")
	data := "label,x,y,z\nA,0,0,0\nB,10,0,0\nC,0,10,0\nD,0,0,10\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("writing receiver table: %v", err)
	}
	return path
}

// Helper to write a detection CSV for a source at (2,3,1) with speed 1
func writeTestDetections(t *testing.T, dir string, receivers toa.ReceiverArray) string {
	t.Helper()
	path := filepath.Join(dir, "detections.csv")
	table := toa.DetectionTable{
		toa.SynthesizeEvent(receivers, "evt-0001", toa.Point3{X: 2, Y: 3, Z: 1}, 1.0, 0),
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating detection table: %v", err)
	}
	defer f.Close()
	if err := toa.WriteDetectionTable(f, receivers, table); err != nil {
		t.Fatalf("writing detection table: %v", err)
	}
	return path
}

func TestNewApp(t *testing.T) {
	app := NewApp()
	if app == nil {
		t.Fatal("NewApp returned nil")
	}
}

func TestLoadInputs_MissingReceivers(t *testing.T) {
	app := NewApp()
	if err := app.LoadInputs(); err == nil {
		t.Error("LoadInputs should fail without a receiver table")
	}
}

func TestLoadInputs_FlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	rxPath := writeTestReceivers(t, dir)

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := &toa.Config{
		ReceiverFile: rxPath,
		Speed:        343.0,
	}
	if err := toa.SaveConfig(cfgPath, cfg); err != nil {
		t.Fatalf("saving config: %v", err)
	}

	app := NewApp()
	app.ConfigFile = cfgPath
	app.Speed = 1500.0 // flag wins over config's 343
	if err := app.LoadInputs(); err != nil {
		t.Fatalf("LoadInputs: %v", err)
	}
	if app.Speed != 1500.0 {
		t.Errorf("Speed = %f, want 1500.0 (flag should override config)", app.Speed)
	}
	if len(app.Receivers) != 4 {
		t.Errorf("loaded %d receivers, want 4", len(app.Receivers))
	}
}

func TestLoadInputs_ConfigFillsUnsetFlags(t *testing.T) {
	dir := t.TempDir()
	rxPath := writeTestReceivers(t, dir)

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := &toa.Config{
		ReceiverFile: rxPath,
		Speed:        343.0,
	}
	if err := toa.SaveConfig(cfgPath, cfg); err != nil {
		t.Fatalf("saving config: %v", err)
	}

	app := NewApp()
	app.ConfigFile = cfgPath
	if err := app.LoadInputs(); err != nil {
		t.Fatalf("LoadInputs: %v", err)
	}
	if app.Speed != 343.0 {
		t.Errorf("Speed = %f, want 343.0 from config", app.Speed)
	}
}

func TestRunLocalize_WritesEstimateTable(t *testing.T) {
	dir := t.TempDir()
	rxPath := writeTestReceivers(t, dir)

	app := NewApp()
	app.ReceiverFile = rxPath
	app.Speed = 1.0
	if err := app.LoadInputs(); err != nil {
		t.Fatalf("LoadInputs: %v", err)
	}

	app.DetectionFile = writeTestDetections(t, dir, app.Receivers)
	if err := app.LoadDetections(); err != nil {
		t.Fatalf("LoadDetections: %v", err)
	}

	app.OutputFile = filepath.Join(dir, "estimates.csv")
	if err := app.RunLocalize(); err != nil {
		t.Fatalf("RunLocalize: %v", err)
	}

	estimates, err := toa.LoadEstimateTable(app.OutputFile)
	if err != nil {
		t.Fatalf("reading estimate table back: %v", err)
	}
	if len(estimates) == 0 {
		t.Fatal("estimate table is empty")
	}
	for _, e := range estimates {
		if e.ID != "evt-0001" {
			t.Errorf("estimate id = %q, want evt-0001", e.ID)
		}
	}
}

func TestRunSimulate_ThenLocalize(t *testing.T) {
	dir := t.TempDir()
	rxPath := writeTestReceivers(t, dir)

	app := NewApp()
	app.ReceiverFile = rxPath
	app.DetectionFile = filepath.Join(dir, "sim.csv")
	app.Speed = 343.0
	app.Seed = 7
	if err := app.LoadInputs(); err != nil {
		t.Fatalf("LoadInputs: %v", err)
	}

	source := toa.Point3{X: 3, Y: 4, Z: 2}
	if err := app.RunSimulate(source, 5, 0, 0); err != nil {
		t.Fatalf("RunSimulate: %v", err)
	}

	if err := app.LoadDetections(); err != nil {
		t.Fatalf("LoadDetections: %v", err)
	}
	if len(app.Table) != 5 {
		t.Fatalf("simulated %d events, want 5", len(app.Table))
	}

	app.OutputFile = filepath.Join(dir, "estimates.csv")
	if err := app.RunLocalize(); err != nil {
		t.Fatalf("RunLocalize: %v", err)
	}
}

func TestRunCalibrate_NoInitialSpeed(t *testing.T) {
	dir := t.TempDir()
	rxPath := writeTestReceivers(t, dir)

	app := NewApp()
	app.ReceiverFile = rxPath
	if err := app.LoadInputs(); err != nil {
		t.Fatalf("LoadInputs: %v", err)
	}
	app.DetectionFile = writeTestDetections(t, dir, app.Receivers)
	if err := app.LoadDetections(); err != nil {
		t.Fatalf("LoadDetections: %v", err)
	}

	if err := app.RunCalibrate(); err == nil {
		t.Error("RunCalibrate should fail without an initial speed")
	}
}

func TestRunCalibrate_UnsolvableTableReturnsWithoutPrinting(t *testing.T) {
	dir := t.TempDir()
	rxPath := writeTestReceivers(t, dir)

	app := NewApp()
	app.ReceiverFile = rxPath
	app.Speed = 343.0
	if err := app.LoadInputs(); err != nil {
		t.Fatalf("LoadInputs: %v", err)
	}

	// Two valid arrivals per event leave too few range differences at any
	// speed, so EstimateSpeed fails up front with a zero result.
	detPath := filepath.Join(dir, "detections.csv")
	data := "id,A,B,C,D\ne1,1.0,2.0,,\ne2,,,1.0,2.0\n"
	if err := os.WriteFile(detPath, []byte(data), 0644); err != nil {
		t.Fatalf("writing detection table: %v", err)
	}
	app.DetectionFile = detPath
	if err := app.LoadDetections(); err != nil {
		t.Fatalf("LoadDetections: %v", err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	saved := os.Stdout
	os.Stdout = w

	calErr := app.RunCalibrate()

	os.Stdout = saved
	w.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("reading captured output: %v", err)
	}

	if calErr == nil {
		t.Fatal("RunCalibrate should fail on an unsolvable table")
	}
	if strings.Contains(buf.String(), "speed:") {
		t.Errorf("zero result printed despite the error:\n%s", buf.String())
	}
}

func TestRenderPlot_PNG(t *testing.T) {
	dir := t.TempDir()
	rxPath := writeTestReceivers(t, dir)

	app := NewApp()
	app.ReceiverFile = rxPath
	if err := app.LoadInputs(); err != nil {
		t.Fatalf("LoadInputs: %v", err)
	}

	app.PlotFile = filepath.Join(dir, "plot.png")
	estimates := []toa.Estimate{
		{ID: "evt-0001", X: 2, Y: 3, Z: 1, Eq: toa.EqSingle},
	}
	if err := app.renderPlot(estimates); err != nil {
		t.Fatalf("renderPlot: %v", err)
	}
	if _, err := os.Stat(app.PlotFile); err != nil {
		t.Errorf("plot file not created: %v", err)
	}
}

func TestRenderPlot_InvalidFormat(t *testing.T) {
	app := NewApp()
	app.PlotFile = filepath.Join(t.TempDir(), "plot.bmp")
	app.PlotFormat = "bmp"
	if err := app.renderPlot(nil); err == nil {
		t.Error("renderPlot should reject unknown formats")
	}
}

package main

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/lauren2018/toal/toa"
)

// App encapsulates the application state and dependencies
type App struct {
	Config    *toa.Config
	Receivers toa.ReceiverArray
	Table     toa.DetectionTable

	// CLI Flags (effectively dependencies)
	ConfigFile    string
	ReceiverFile  string
	DetectionFile string
	Speed         float64
	OutputFile    string
	PlotFile      string
	PlotFormat    string
	PlotScale     float64
	Seed          int64
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{}
}

// LoadInputs resolves the configuration and reads the receiver and detection
// tables. CLI flags take priority over config file values.
func (a *App) LoadInputs() error {
	if a.ConfigFile != "" {
		if _, err := os.Stat(a.ConfigFile); err == nil {
			cfg, err := toa.LoadConfig(a.ConfigFile)
			if err != nil {
				return err
			}
			a.Config = cfg
			log.Printf("Loaded config from %s", a.ConfigFile)

			if a.ReceiverFile == "" {
				a.ReceiverFile = cfg.ReceiverFile
			}
			if a.DetectionFile == "" {
				a.DetectionFile = cfg.DetectionFile
			}
			if a.Speed == 0 {
				a.Speed = cfg.Speed
			}
			if a.OutputFile == "" {
				a.OutputFile = cfg.Output.EstimateFile
			}
			if a.PlotFile == "" {
				a.PlotFile = cfg.Output.PlotFile
			}
			if a.PlotFormat == "" {
				a.PlotFormat = cfg.Output.PlotFormat
			}
			if a.PlotScale == 0 {
				a.PlotScale = cfg.Output.PlotScale
			}
		}
	}

	if a.ReceiverFile == "" {
		return fmt.Errorf("no receiver table: pass -receivers or set receiverFile in %s", a.ConfigFile)
	}
	receivers, err := toa.LoadReceiverTable(a.ReceiverFile)
	if err != nil {
		return err
	}
	if err := receivers.Validate(); err != nil {
		return fmt.Errorf("receiver table %s: %w", a.ReceiverFile, err)
	}
	a.Receivers = receivers
	log.Printf("Loaded %d receiver(s) from %s", len(receivers), a.ReceiverFile)
	return nil
}

// LoadDetections reads the detection table. Kept separate from LoadInputs
// because simulate mode writes this file instead of reading it.
func (a *App) LoadDetections() error {
	if a.DetectionFile == "" {
		return fmt.Errorf("no detection table: pass -detections or set detectionFile in config")
	}
	table, err := toa.LoadDetectionTable(a.DetectionFile, a.Receivers)
	if err != nil {
		return err
	}
	a.Table = table
	log.Printf("Loaded %d event(s) from %s", len(table), a.DetectionFile)
	return nil
}

// RunLocalize solves every event in the detection table and writes the
// estimate table and optional scatter plot.
func (a *App) RunLocalize() error {
	if a.Speed <= 0 {
		return fmt.Errorf("no propagation speed: pass -speed or set speed in config")
	}

	estimates, failures := toa.Localize(a.Receivers, a.Table, a.Speed)
	for _, f := range failures {
		log.Printf("Skipped event: %v", f)
	}
	fmt.Printf("%d event(s): %d estimate(s), %d excluded\n",
		len(a.Table), len(estimates), len(failures))

	if a.OutputFile != "" {
		if err := toa.SaveEstimateTable(a.OutputFile, estimates); err != nil {
			return err
		}
		fmt.Printf("Created estimate table: %s\n", a.OutputFile)
	} else if err := toa.WriteEstimateTable(os.Stdout, estimates); err != nil {
		return err
	}

	if a.PlotFile != "" {
		if err := a.renderPlot(estimates); err != nil {
			return err
		}
	}
	return nil
}

// RunCalibrate estimates the propagation speed from the detection table and
// prints the result.
func (a *App) RunCalibrate() error {
	var block *toa.CalibrationBlock
	if a.Config != nil {
		block = a.Config.Calibration
	}

	initial := a.Speed
	if initial == 0 && block != nil {
		initial = block.InitialSpeed
	}
	if initial <= 0 {
		return fmt.Errorf("no initial speed: pass -speed or set calibration.initialSpeed in config")
	}

	result, err := toa.EstimateSpeed(a.Receivers, a.Table, initial, block.SearchConfig())
	if err != nil {
		// A ConvergenceError still carries the best point found; anything
		// else yields a zero result that must not be printed.
		var ce *toa.ConvergenceError
		if !errors.As(err, &ce) {
			return err
		}
		log.Printf("Warning: %v", err)
	}
	fmt.Printf("speed: %.6g\n", result.Speed)
	fmt.Printf("meanError: %.6g\n", result.MeanError)
	fmt.Printf("iterations: %d\n", result.Iterations)
	fmt.Printf("converged: %v\n", result.Converged)
	if !result.Converged {
		return fmt.Errorf("calibration did not converge after %d iterations", result.Iterations)
	}
	return nil
}

// RunSimulate synthesizes a detection table for a known source and writes it
// to the detection file path.
func (a *App) RunSimulate(source toa.Point3, events int, noise, dropProb float64) error {
	if a.DetectionFile == "" {
		return fmt.Errorf("simulate mode needs -detections as the output path")
	}
	if a.Speed <= 0 {
		return fmt.Errorf("no propagation speed: pass -speed or set speed in config")
	}

	table := toa.SynthesizeDetections(a.Receivers, toa.SimulationConfig{
		Source:          source,
		Speed:           a.Speed,
		Events:          events,
		NoiseStdDev:     noise,
		DropProbability: dropProb,
		RNG:             rand.New(rand.NewSource(a.Seed)),
	})

	f, err := os.Create(a.DetectionFile)
	if err != nil {
		return fmt.Errorf("creating detection table %s: %w", a.DetectionFile, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Warning: error closing %s: %v", a.DetectionFile, err)
		}
	}()
	if err := toa.WriteDetectionTable(f, a.Receivers, table); err != nil {
		return err
	}
	fmt.Printf("Created detection table: %s (%d events)\n", a.DetectionFile, len(table))
	return nil
}

// renderPlot writes the estimate scatter plot in the configured format.
func (a *App) renderPlot(estimates []toa.Estimate) error {
	switch a.PlotFormat {
	case "svg":
		plot := toa.NewVectorPlot(a.Receivers, estimates)
		if a.PlotScale > 0 {
			plot.Scale = a.PlotScale
		}
		if err := plot.RenderToFile(a.PlotFile, "svg"); err != nil {
			return err
		}
		fmt.Printf("Created vector plot: %s\n", a.PlotFile)
	case "", "png":
		if err := toa.RenderScatterPNG(a.PlotFile, a.Receivers, estimates, toa.DefaultPlotConfig()); err != nil {
			return err
		}
		fmt.Printf("Created raster plot: %s\n", a.PlotFile)
	default:
		return fmt.Errorf("invalid plot format: %s (must be png or svg)", a.PlotFormat)
	}
	return nil
}

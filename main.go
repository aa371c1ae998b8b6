package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/lauren2018/toal/toa"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configFile    = flag.String("config", "config.yaml", "Path to configuration file")
	receiverFile  = flag.String("receivers", "", "Path to receiver table CSV (overrides config)")
	detectionFile = flag.String("detections", "", "Path to detection table CSV (overrides config)")
	speed         = flag.Float64("speed", 0, "Propagation speed in distance units per time unit (overrides config)")
	localizeOnly  = flag.Bool("localize", false, "Solve every event in the detection table and exit")
	calibrateOnly = flag.Bool("calibrate", false, "Estimate propagation speed from the detection table and exit")
	simulateOnly  = flag.Bool("simulate", false, "Synthesize a detection table for a known source and exit")
	renderOnly    = flag.Bool("render", false, "Replot an existing estimate table and exit")
	outputFile    = flag.String("output", "", "Output file for estimate table (default: stdout)")
	plotFile      = flag.String("plot", "", "Output file for scatter plot (empty disables plotting)")
	plotFormat    = flag.String("plot-format", "", "Plot format: png or svg (default png)")
	plotScale     = flag.Float64("plot-scale", 0, "Canvas millimeters per world unit for svg plots")
	// Simulation flags
	sourceX  = flag.Float64("source-x", 0, "Simulated source X coordinate")
	sourceY  = flag.Float64("source-y", 0, "Simulated source Y coordinate")
	sourceZ  = flag.Float64("source-z", 0, "Simulated source Z coordinate")
	events   = flag.Int("events", 1, "Number of simulated events")
	noise    = flag.Float64("noise", 0, "Gaussian arrival-time noise standard deviation")
	dropProb = flag.Float64("drop-prob", 0, "Probability each arrival time is dropped")
	seed     = flag.Int64("seed", 1, "Random seed for simulation")
)

func main() {
	flag.Parse()
	fmt.Printf("toal version: %s\n", Version)

	app := NewApp()
	app.ConfigFile = *configFile
	app.ReceiverFile = *receiverFile
	app.DetectionFile = *detectionFile
	app.Speed = *speed
	app.OutputFile = *outputFile
	app.PlotFile = *plotFile
	app.PlotFormat = *plotFormat
	app.PlotScale = *plotScale
	app.Seed = *seed

	if *renderOnly {
		runRender(app)
		return
	}

	if err := app.LoadInputs(); err != nil {
		log.Fatalf("Error: %v", err)
	}

	if *simulateOnly {
		source := toa.Point3{X: *sourceX, Y: *sourceY, Z: *sourceZ}
		if err := app.RunSimulate(source, *events, *noise, *dropProb); err != nil {
			log.Fatalf("Error simulating: %v", err)
		}
		return
	}

	if err := app.LoadDetections(); err != nil {
		log.Fatalf("Error: %v", err)
	}

	if *calibrateOnly {
		if err := app.RunCalibrate(); err != nil {
			log.Fatalf("Error calibrating: %v", err)
		}
		return
	}

	if *localizeOnly {
		if err := app.RunLocalize(); err != nil {
			log.Fatalf("Error localizing: %v", err)
		}
		return
	}

	fmt.Println("Use -localize to solve the detection table")
	fmt.Println("Use -calibrate to estimate the propagation speed")
	fmt.Println("Use -simulate to synthesize a detection table")
	fmt.Println("Use -render to replot an existing estimate table")
	fmt.Println("\nConfiguration:")
	fmt.Println("  config.yaml - input tables, speed, calibration and output settings")
}

// runRender reads an existing estimate table and replots it, without
// re-solving the detection table.
func runRender(app *App) {
	if *outputFile == "" {
		log.Fatal("render mode needs -output naming the estimate table to replot")
	}
	if *plotFile == "" {
		log.Fatal("render mode needs -plot naming the plot output file")
	}

	if err := app.LoadInputs(); err != nil {
		log.Fatalf("Error: %v", err)
	}
	estimates, err := toa.LoadEstimateTable(*outputFile)
	if err != nil {
		log.Fatalf("Error reading estimate table: %v", err)
	}
	if err := app.renderPlot(estimates); err != nil {
		log.Fatalf("Error rendering: %v", err)
	}
}

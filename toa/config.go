package toa

// Config is the application configuration: where the input tables live, the
// assumed propagation speed, and the optional calibration and output blocks.
type Config struct {
	ReceiverFile  string            `yaml:"receiverFile" json:"receiverFile"`
	DetectionFile string            `yaml:"detectionFile" json:"detectionFile"`
	Speed         float64           `yaml:"speed" json:"speed"`
	Calibration   *CalibrationBlock `yaml:"calibration,omitempty" json:"calibration,omitempty"`
	Output        OutputConfig      `yaml:"output,omitempty" json:"output,omitempty"`
}

// CalibrationBlock configures the speed search; absent fields fall back to
// DefaultCalibrationConfig.
type CalibrationBlock struct {
	InitialSpeed  float64 `yaml:"initialSpeed" json:"initialSpeed"`
	Tolerance     float64 `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	MaxIterations int     `yaml:"maxIterations,omitempty" json:"maxIterations,omitempty"`
}

// SearchConfig converts the block into the solver-level CalibrationConfig.
func (cb *CalibrationBlock) SearchConfig() CalibrationConfig {
	cfg := DefaultCalibrationConfig()
	if cb == nil {
		return cfg
	}
	if cb.Tolerance > 0 {
		cfg.Tolerance = cb.Tolerance
	}
	if cb.MaxIterations > 0 {
		cfg.MaxIterations = cb.MaxIterations
	}
	return cfg
}

// OutputConfig names where results are written. Empty fields disable the
// corresponding output.
type OutputConfig struct {
	EstimateFile string  `yaml:"estimateFile,omitempty" json:"estimateFile,omitempty"`
	PlotFile     string  `yaml:"plotFile,omitempty" json:"plotFile,omitempty"`
	PlotFormat   string  `yaml:"plotFormat,omitempty" json:"plotFormat,omitempty"` // "png", "svg"
	PlotScale    float64 `yaml:"plotScale,omitempty" json:"plotScale,omitempty"`
}

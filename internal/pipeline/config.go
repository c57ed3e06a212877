package pipeline

import "github.com/sells-group/lasqc/internal/processor"

// Config selects the optional stages and their parameters. A nil stage
// option disables that stage.
type Config struct {
	// MaxFileSize is the largest accepted input in bytes; 0 disables the check.
	MaxFileSize int64
	Standardize bool
	Denoise     *processor.DenoiseOptions
	Despike     *processor.DespikeOptions
	Baseline    *processor.BaselineOptions
}

// DefaultMaxFileSize is 50 MiB.
const DefaultMaxFileSize = 50 << 20

// DefaultConfig enables standardization, denoising and despiking with their
// default parameters. Baseline correction is off.
func DefaultConfig() Config {
	denoise := processor.DefaultDenoiseOptions()
	despike := processor.DefaultDespikeOptions()
	return Config{
		MaxFileSize: DefaultMaxFileSize,
		Standardize: true,
		Denoise:     &denoise,
		Despike:     &despike,
	}
}

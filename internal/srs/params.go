package srs

// DefaultWeights is the default 21-parameter FSRS weight vector
// (py-fsrs / fsrs4anki defaults). w[20] is the trainable decay exponent.
var DefaultWeights = [21]float64{
	0.212, 1.2931, 2.3065, 8.2956,
	6.4133, 0.8334, 3.0194, 0.001,
	1.8722, 0.1666, 0.796, 1.4835,
	0.0614, 0.2629, 1.6483, 0.6014,
	1.8729, 0.5425, 0.0912, 0.0658,
	0.1542,
}

// FSRSParams configures an FSRSScheduler.
type FSRSParams struct {
	Weights          [21]float64
	RequestRetention float64 // target recall probability at review time
	MaximumInterval  int     // days
	EnableFuzz       bool    // randomize intervals >= 2.5 days by ~±5%
}

// DefaultFSRSParams returns the standard configuration: 90% target
// retention, 100-year interval ceiling, fuzz disabled.
func DefaultFSRSParams() FSRSParams {
	return FSRSParams{
		Weights:          DefaultWeights,
		RequestRetention: 0.9,
		MaximumInterval:  36500,
	}
}

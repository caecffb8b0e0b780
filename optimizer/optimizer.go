// Package optimizer implements the local-optimizer family that feeds
// observed round-trip latencies back into a router's forwarding table:
// None (discard), Trivial (periodic summary-statistic flush), Async
// (exponential moving average) and AsyncPF (raw-sample passthrough, meant
// to pair with a ProportionalFairness entry that does its own smoothing).
package optimizer

import "fmt"

// WeightWriter is the subset of forwarding.Table/forwarding.Router an
// optimizer needs: the weight-update-only mutator, plus Multiply for the
// failure hook. Depending on this narrow interface instead of the
// concrete forwarding type keeps the optimizer package a leaf with no
// dependency on the table package.
type WeightWriter interface {
	ChangeWeight(function, endpoint string, weight float64) error
	Multiply(function, endpoint string, factor float64) error
}

// LocalOptimizer observes every (function, destination, measured
// round-trip) the router's dispatcher produces and reacts to transport
// failures.
type LocalOptimizer interface {
	// Observe records a successful forward of elapsed seconds to
	// destination for function.
	Observe(function, destination string, elapsed float64)

	// Fail records a forwarding failure to destination for function,
	// typically making the destination less attractive until it proves
	// otherwise.
	Fail(function, destination string)

	// Close stops any background worker the optimizer started.
	Close()
}

// Kind names one of the four optimizer variants, used by the CLI/config
// layer to select one without importing the concrete types directly.
type Kind string

const (
	KindNone    Kind = "none"
	KindTrivial Kind = "trivial"
	KindAsync   Kind = "async"
	KindAsyncPF Kind = "async-pf"
)

// FailureFactor is the default multiplier applied to a destination's
// weight on a forwarding failure, making it less attractive next time.
const FailureFactor = 2.0

// New builds a local optimizer of the given kind. period is the flush
// interval for KindTrivial (seconds); alpha is the EWMA coefficient for
// KindAsync. Panics on an unrecognized kind, mirroring the closed-set
// factories used throughout this codebase for variant selection.
func New(kind Kind, w WeightWriter, period, alpha float64) LocalOptimizer {
	switch kind {
	case KindNone:
		return &None{}
	case KindTrivial:
		return NewTrivial(w, period)
	case KindAsync:
		return NewAsync(w, alpha)
	case KindAsyncPF:
		return NewAsyncPF(w)
	default:
		panic(fmt.Sprintf("optimizer: unknown kind %q", kind))
	}
}

// None discards every sample; used when weight feedback is not wanted
// (e.g. a router whose entries are configured statically by the
// controller only).
type None struct{}

func (*None) Observe(string, string, float64) {}
func (*None) Fail(string, string)             {}
func (*None) Close()                          {}

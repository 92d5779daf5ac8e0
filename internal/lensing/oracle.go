package lensing

// RayStatus classifies the outcome of one forward trace. Anything
// other than StatusNormal marks the ray invalid; the pipeline turns
// such samples into NaN sentinels and carries on.
type RayStatus int

const (
	StatusNormal RayStatus = iota
	// StatusConfined: the trajectory never reaches the observer
	// radius (captured or bound orbit).
	StatusConfined
	// StatusEtaOutOfRange: the Carter constant is outside the
	// allowed domain for the requested geometry.
	StatusEtaOutOfRange
	// StatusThetaOutOfRange: the polar turning structure excludes
	// the emission angle.
	StatusThetaOutOfRange
	// StatusArgumentError: an intermediate special-function argument
	// left its domain. Common near critical curves; logged only on
	// the diag stream.
	StatusArgumentError
	StatusUnknownError
)

func (s RayStatus) String() string {
	switch s {
	case StatusNormal:
		return "NORMAL"
	case StatusConfined:
		return "CONFINED"
	case StatusEtaOutOfRange:
		return "ETA_OUT_OF_RANGE"
	case StatusThetaOutOfRange:
		return "THETA_OUT_OF_RANGE"
	case StatusArgumentError:
		return "ARGUMENT_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// RaySign is the direction of radial or poloidal motion at emission.
type RaySign int

const (
	SignPositive RaySign = 1
	SignNegative RaySign = -1
)

// Params carries every input of one forward trace. Rc and LogAbsD are
// the impact-parameter encoding the sweep iterates over: Rc is a
// critical-curve radius and LogAbsD the log of the (signed, via
// DSign) distance from the critical curve. The tracer owns the
// deterministic, injective mapping from (Rc, LogAbsD) to the
// conserved quantities (λ, η).
type Params[T any] struct {
	Spin         T // black hole spin a
	EmitterR     T // emission radius r_s
	EmitterTheta T // emission inclination θ_s
	ObserverR    T // observer radius r_o

	NuR     RaySign // initial radial direction
	NuTheta RaySign // initial poloidal direction

	Rc      T
	LogAbsD T
	DSign   RaySign
}

// Result is the outcome of one forward trace: the final sky angles,
// the conserved quantities, and the status. Rc/LogAbsD echo the
// impact parameters that produced it (refinement overwrites them with
// the solved values).
type Result[T any] struct {
	Theta  T // θ_f
	Phi    T // φ_f, accumulated without 2π wrapping
	Lambda T
	Eta    T

	Rc      T
	LogAbsD T
	DSign   RaySign

	Status RayStatus
}

// Tracer is one reusable forward ray-tracing evaluation context. A
// Tracer is not safe for concurrent use; the pool hands each sweep
// worker its own.
//
// Trace must be a pure function of p: identical parameters produce
// identical results, at any level of parallelism. Invalid rays are
// reported through Result.Status, never through panics.
type Tracer[T any] interface {
	Trace(p Params[T]) Result[T]
}

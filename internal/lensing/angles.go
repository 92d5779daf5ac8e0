package lensing

// WrapPhi normalises an azimuth into [0, 2π). It is idempotent and
// passes NaN through unchanged.
func WrapPhi[T any](ops Scalar[T], phi T) T {
	if ops.IsNaN(phi) {
		return phi
	}
	twoPi := ops.TwoPi()
	zero := ops.FromFloat(0)
	if !ops.Less(phi, zero) && ops.Less(phi, twoPi) {
		return phi
	}
	turns := ops.Floor(ops.Div(phi, twoPi))
	return ops.Sub(phi, ops.Mul(twoPi, turns))
}

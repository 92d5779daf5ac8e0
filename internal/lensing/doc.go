// Package lensing finds the photon impact parameters that map to a
// target pair of observed sky angles around a rotating compact
// object, including higher-order winding images.
//
// The pipeline: sample a forward ray-tracing oracle over an
// rc × log|d| grid in parallel, isolate sign changes of the polar and
// azimuthal residual fields, pair the two candidate families by
// nearest neighbour, refine the best-paired candidates with a
// derivative-free Broyden search at a fixed winding period, and
// deduplicate the refined roots.
//
// Everything is generic over the Scalar numeric trait so the same
// code runs at float64 and, through the explicit fallback in
// highprec.go, at big-float precision for ill-conditioned targets.
// The forward oracle itself is consumed through the Tracer interface;
// this package never assumes a particular spacetime model.
package lensing

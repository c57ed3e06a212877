// Package numeric provides the small dense linear algebra kernels behind the
// least-squares filters: transpose, multiply, Gauss-Jordan inversion with
// partial pivoting, and a normal-equation solver with polynomial helpers.
//
// The kernels target small systems (window sizes up to ~21, polynomial orders
// up to ~6). Dimension problems and singular systems are reported through the
// sentinel errors in errors.go and must be matched with errors.Is.
package numeric

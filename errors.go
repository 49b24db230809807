// Package muninn implements adaptive generalized-ensemble Monte Carlo
// weight estimation: an online estimator of the microcanonical entropy
// S(E) = ln g(E) over a dynamically binned energy axis, and the derived
// non-Boltzmann log-weights a host MCMC driver uses for its acceptance
// rule.
//
// The orchestrator types are GE and CGE (package root); the collaborators
// it binds live in the array, binner, histogram, history, estimate,
// estimator, weight, update, statlog and canonical subpackages.
package muninn

import "github.com/jfrellsen/muninn/errs"

// The error kinds of spec.md §7 are defined in package errs (to avoid an
// import cycle with the collaborator packages that also need to return
// them) and re-exported here as aliases so host code can write
// muninn.MaxBinsExceededError, errors.As(err, &target) with a target of type
// *muninn.NoSolutionError, etc.
// without needing to know about the internal split.
type (
	MaxBinsExceededError = errs.MaxBinsExceededError
	NoOverlapError       = errs.NoOverlapError
	NoSolutionError      = errs.NoSolutionError
	CastMismatchError    = errs.CastMismatchError
	ReadError            = errs.ReadError
	ConfigError          = errs.ConfigError
	ShapeMismatchError   = errs.ShapeMismatchError
)

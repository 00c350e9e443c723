package ocean

import (
	"errors"
	"fmt"
)

// Domain errors for model construction and numerical solves.
var (
	// ErrConfig indicates an invalid or missing construction parameter.
	ErrConfig = errors.New("ocean: invalid configuration")

	// ErrNonMonotonic indicates a grid that is not strictly increasing.
	ErrNonMonotonic = errors.New("ocean: grid is not strictly increasing")

	// ErrNonPositive indicates a diffusivity or area that is not positive.
	ErrNonPositive = errors.New("ocean: value must be positive")

	// ErrLength indicates a profile whose length does not match its grid.
	ErrLength = errors.New("ocean: length does not match grid")

	// ErrSingular indicates a linear system with a zero pivot.
	ErrSingular = errors.New("ocean: singular linear system")

	// ErrNoConvergence indicates an iterative solve that did not reach tolerance.
	ErrNoConvergence = errors.New("ocean: solver did not converge")

	// ErrInvalidProfile indicates a solve that produced NaN or Inf values.
	ErrInvalidProfile = errors.New("ocean: invalid profile (NaN or Inf detected)")
)

// ConfigError reports a rejected construction parameter. It always matches
// ErrConfig with errors.Is, plus the optional underlying cause.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfig}
	}
	return []error{ErrConfig, e.Err}
}

// Configf builds a ConfigError for field with a formatted reason.
func Configf(field string, cause error, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...), Err: cause}
}

// DivergenceError wraps a numerical failure with solver context.
type DivergenceError struct {
	Solver    string
	Iteration int
	Residual  float64
	Err       error
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("%s: iteration %d (residual %.3e): %v", e.Solver, e.Iteration, e.Residual, e.Err)
}

func (e *DivergenceError) Unwrap() error {
	return e.Err
}

// IsNumerical reports whether err is a numerical divergence rather than a
// configuration problem.
func IsNumerical(err error) bool {
	return errors.Is(err, ErrSingular) || errors.Is(err, ErrNoConvergence) || errors.Is(err, ErrInvalidProfile)
}

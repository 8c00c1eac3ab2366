package layers

import (
	"github.com/pkg/errors"
)

// Errors returned by the layer functions. Callers match them with errors.Is;
// the returned errors carry the operation name and a stack trace.
var (
	ErrInvalidMode   = errors.New("invalid mode")
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidCache  = errors.New("invalid cache")
)

func shapeError(op, format string, args ...any) error {
	return errors.Wrapf(ErrShapeMismatch, op+": "+format, args...)
}

func configError(op, format string, args ...any) error {
	return errors.Wrapf(ErrInvalidConfig, op+": "+format, args...)
}

func cacheError(op string) error {
	return errors.Wrapf(ErrInvalidCache, "%s: nil cache", op)
}

package layers

import (
	"strconv"

	"github.com/pkg/errors"
)

// Mode selects training or inference behaviour for batch normalization and
// dropout. The zero value is not a valid mode.
type Mode int

// Supported modes.
const (
	Train Mode = iota + 1
	Test
)

// ParseMode converts "train" or "test" into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "train":
		return Train, nil
	case "test":
		return Test, nil
	default:
		return 0, errors.Wrapf(ErrInvalidMode, "unknown mode %q", s)
	}
}

// Valid reports whether m is one of the enumerated modes.
func (m Mode) Valid() bool {
	return m == Train || m == Test
}

// String returns "train", "test", or a diagnostic for invalid values.
func (m Mode) String() string {
	switch m {
	case Train:
		return "train"
	case Test:
		return "test"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, errors.Wrapf(ErrInvalidMode, "cannot marshal %s", m)
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func checkMode(op string, m Mode) error {
	if !m.Valid() {
		return errors.Wrapf(ErrInvalidMode, "%s: %s", op, m)
	}
	return nil
}

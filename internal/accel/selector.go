package accel

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultDriver is the driver used when a selector names none.
const DefaultDriver = "host"

// Selector picks one device: a registered driver, a platform index within
// it and a device index within that platform.
type Selector struct {
	Driver   string
	Platform int
	Device   int
}

// DefaultSelector returns host:0:0.
func DefaultSelector() Selector {
	return Selector{Driver: DefaultDriver}
}

// String formats the selector as "driver:platform:device".
func (s Selector) String() string {
	return fmt.Sprintf("%s:%d:%d", s.Driver, s.Platform, s.Device)
}

// ParseSelector parses "driver[:platform[:device]]". Omitted indices are 0
// and an empty string selects the default driver.
func ParseSelector(s string) (Selector, error) {
	sel := DefaultSelector()
	s = strings.TrimSpace(s)
	if s == "" {
		return sel, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return Selector{}, fmt.Errorf("%w: %q has more than three fields", ErrInvalidSelector, s)
	}
	if parts[0] != "" {
		sel.Driver = strings.ToLower(parts[0])
	}

	idx := []*int{&sel.Platform, &sel.Device}
	for n, p := range parts[1:] {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return Selector{}, fmt.Errorf("%w: %q: index %q is not a non-negative integer", ErrInvalidSelector, s, p)
		}
		*idx[n] = v
	}
	return sel, nil
}

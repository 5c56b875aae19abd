package config

import (
	"errors"
	"fmt"
)

// required collects the names of unset mandatory settings.
type required []error

func (r *required) str(value, envName string) {
	if value == "" {
		*r = append(*r, fmt.Errorf("missing required env %s", envName))
	}
}

func (r *required) bytes(value []byte, envName string) {
	if len(value) == 0 {
		*r = append(*r, fmt.Errorf("missing required env %s", envName))
	}
}

func (r required) err() error {
	return errors.Join(r...)
}

package domain

import (
	"fmt"
	"time"
)

// Credential is a named, provider-scoped secret bundle. At most one
// credential exists per (provider, key) pair.
type Credential struct {
	ID        string
	Provider  string
	Key       string
	Options   map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Credential) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("%w: provider is required", ErrValidation)
	}
	if c.Key == "" {
		return fmt.Errorf("%w: key is required", ErrValidation)
	}
	if len(c.Options) == 0 {
		return fmt.Errorf("%w: options are required", ErrValidation)
	}
	return nil
}

package domain

import (
	"fmt"
	"time"
)

// DefaultTemplateEngine is the only rendering engine currently supported.
const DefaultTemplateEngine = "hbs"

// Template is a stored message body with Handlebars-style placeholders.
type Template struct {
	ID        string
	Name      string
	Content   string
	Engine    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if t.Content == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	if t.Engine != "" && t.Engine != DefaultTemplateEngine {
		return fmt.Errorf("%w: unsupported template engine %q", ErrValidation, t.Engine)
	}
	return nil
}

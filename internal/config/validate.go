package config

import "fmt"

// ValidationError reports a malformed or missing configuration value,
// grounded on the shape of the teacher's domain.ConfigValidationError.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Validate checks invariants decodeModels and viper can't enforce on their
// own: every non-local group needs at least one backend, and every backend
// needs a base URL.
func Validate(cfg *Config) error {
	for name, group := range cfg.Models {
		if name == "local" && len(group.Backends) == 0 {
			continue
		}
		if len(group.Backends) == 0 {
			return &ValidationError{Field: fmt.Sprintf("models.%s", name), Reason: "no backends configured"}
		}
		seen := make(map[string]bool, len(group.Backends))
		for _, b := range group.Backends {
			if b.BaseURL == "" {
				return &ValidationError{Field: fmt.Sprintf("models.%s.%s", name, b.Key), Reason: "base_url is required"}
			}
			if seen[b.Key] {
				return &ValidationError{Field: fmt.Sprintf("models.%s.%s", name, b.Key), Reason: "duplicate backend key"}
			}
			seen[b.Key] = true
		}
	}
	return nil
}

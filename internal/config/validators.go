package config

// ValidatorsConfig toggles the built-in staging validators that run before
// promote by file extension. A missing key defaults to enabled.
type ValidatorsConfig struct {
	Enabled map[string]bool `yaml:"enabled" json:"enabled,omitempty"`
}

// IsEnabled reports whether the validator for ext (e.g. ".py") should run.
func (v ValidatorsConfig) IsEnabled(ext string) bool {
	if v.Enabled == nil {
		return true
	}
	enabled, exists := v.Enabled[ext]
	if !exists {
		return true
	}
	return enabled
}

// DefaultValidatorsConfig enables every built-in validator.
func DefaultValidatorsConfig() ValidatorsConfig {
	return ValidatorsConfig{
		Enabled: map[string]bool{
			".py":   true,
			".json": true,
			".yaml": true,
			".yml":  true,
		},
	}
}

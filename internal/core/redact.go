package core

// Redacted replaces sensitive values in log output.
const Redacted = "<REDACTED>"

// Redactor masks sensitive values before they reach the logs.
type Redactor struct {
	Disabled bool
}

// NewRedactor returns a redactor honoring the log configuration.
func NewRedactor(cfg LogConfig) Redactor {
	return Redactor{Disabled: cfg.DisableRedaction}
}

func (r Redactor) Redact(value string) string {
	if r.Disabled {
		return value
	}
	return Redacted
}

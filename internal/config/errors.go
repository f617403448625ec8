package config

import "fmt"

// ErrorKind separates malformed manifests from malformed values.
type ErrorKind string

// Error kinds.
const (
	// Structural errors concern the manifest as a whole: it cannot be
	// parsed or it repeats a key.
	Structural ErrorKind = "structural"

	// Format errors concern one field whose value has the wrong shape
	// or type.
	Format ErrorKind = "format"
)

// ConfigError reports why the configuration could not be resolved.
// Field is set for format errors, Path for errors tied to a file.
type ConfigError struct {
	Kind  ErrorKind
	Field string
	Path  string
	Msg   string
	Err   error
}

func (e *ConfigError) Error() string {
	msg := e.Msg
	if e.Field != "" {
		msg = fmt.Sprintf("invalid value for %s: %s", e.Field, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func structuralError(path, msg string, err error) *ConfigError {
	return &ConfigError{Kind: Structural, Path: path, Msg: msg, Err: err}
}

func formatError(field, msg string) *ConfigError {
	return &ConfigError{Kind: Format, Field: field, Msg: msg}
}

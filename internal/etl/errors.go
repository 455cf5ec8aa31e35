package etl

import "fmt"

// ConfigDecodeError is returned when a remap configuration is missing or unreadable.
// It aborts the whole run before any output is written.
type ConfigDecodeError struct {
	Path string
	Err  error
}

func (e *ConfigDecodeError) Error() string {
	return fmt.Sprintf("failed to decode remap configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigDecodeError) Unwrap() error {
	return e.Err
}

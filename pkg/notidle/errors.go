package notidle

import (
	"errors"
	"fmt"
)

// Configuration failures reported by Start and Err, wrapped in a *ConfigurationError.
var (
	ErrNoInteraction           = errors.New("there is no interaction to watch")
	ErrNoWindow                = errors.New("window must be configured with a positive duration")
	ErrInvalidSpec             = errors.New("invalid interaction")
	ErrReconfigureWhileRunning = errors.New("cannot change configuration while running")
	ErrAlreadyRunning          = errors.New("already running")
)

// ConfigurationError reports a watcher that cannot start as configured.
type ConfigurationError struct {
	Err    error
	Detail string
}

func (e *ConfigurationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("not-idle configuration: %v", e.Err)
	}
	return fmt.Sprintf("not-idle configuration: %v: %s", e.Err, e.Detail)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErr(err error, detail string) *ConfigurationError {
	return &ConfigurationError{Err: err, Detail: detail}
}

package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnsupportedDBEngine error if config db.gormEngine is not one of mysql, postgres, sqlite.
	ErrUnsupportedDBEngine = errors.New("toml config db.gormEngine is not supported")

	// ErrInvalidPageSize error if config sync.pageSize is negative.
	ErrInvalidPageSize = errors.New("toml config sync.pageSize can not be negative")

	// ErrInvalidRemovalPercent error if config sync.maxRemovalPercent is outside 0..100.
	ErrInvalidRemovalPercent = errors.New("toml config sync.maxRemovalPercent must be between 0 and 100")
)

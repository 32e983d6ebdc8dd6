package config

import "errors"

// Configuration validation errors
var (
	ErrInvalidPartitionCount = errors.New("config: invalid partition count")
	ErrInvalidStrategy       = errors.New("config: invalid partition strategy")
	ErrInvalidGhostLayers    = errors.New("config: invalid ghost layers")
	ErrInvalidLogLevel       = errors.New("config: invalid log level")
	ErrInvalidLogFormat      = errors.New("config: invalid log format")
)

// Configuration loading errors
var (
	ErrUnsupportedFormat = errors.New("config: unsupported file format")
	ErrEnvironmentVar    = errors.New("config: bad environment variable")
)

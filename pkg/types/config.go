// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// EngineConfig holds matching defaults used by the CLI and the service.
type EngineConfig struct {
	// TopK overrides the pattern top_k when a pattern leaves it unset (default 7).
	TopK int `json:"top_k" yaml:"top_k" mapstructure:"top_k"`

	// MaxRepairs overrides the pattern max_repairs when unset (default 10).
	MaxRepairs int `json:"max_repairs" yaml:"max_repairs" mapstructure:"max_repairs"`

	// Workers bounds concurrent concept matching in batch mode (default 4).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// ServerConfig holds settings for the HTTP service.
type ServerConfig struct {
	// Addr is the listen address (default "0.0.0.0:8787").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// RateLimit is the sustained request rate per second (0 disables limiting).
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// Burst is the token bucket size (default 20).
	Burst int `json:"burst" yaml:"burst" mapstructure:"burst"`

	// MaxBodyBytes caps request bodies (default 4 MiB).
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" mapstructure:"max_body_bytes"`

	// APIToken, when set, is required as a bearer token on /cpms routes.
	APIToken string `json:"api_token,omitempty" yaml:"api_token,omitempty" mapstructure:"api_token"`
}

// LibraryConfig holds settings for the concept and pattern library.
type LibraryConfig struct {
	// Dir contains library.db (default "data").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	// Level is debug, info, warn, or error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json (default text).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups every section of concept-engine.yaml.
type Config struct {
	Engine  EngineConfig  `json:"engine" yaml:"engine" mapstructure:"engine"`
	Server  ServerConfig  `json:"server" yaml:"server" mapstructure:"server"`
	Library LibraryConfig `json:"library" yaml:"library" mapstructure:"library"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
}

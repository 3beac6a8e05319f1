package config

import "time"

// MessagePolicy describes the sending rules for one message type.
// Hours are UTC and the window is half-open: MinHour <= hour < MaxHour.
type MessagePolicy struct {
	Kind    int `mapstructure:"kind" yaml:"kind"`
	MinHour int `mapstructure:"min_hour" yaml:"min_hour"`
	MaxHour int `mapstructure:"max_hour" yaml:"max_hour"`
}

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	MaxClients      int           `mapstructure:"max_clients" yaml:"max_clients"`
	OnlineThreshold time.Duration `mapstructure:"online_threshold" yaml:"online_threshold"`

	Policies map[string]MessagePolicy `mapstructure:"policies" yaml:"policies"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		RedisAddr:         "localhost:6379",
		RedisPassword:     "",
		JWTSecret:         "change-me",
		JWTIssuer:         "roomchat",
		JWTAudience:       "roomchat-clients",
		JWTTTL:            24 * time.Hour,
		MaxClients:        256,
		OnlineThreshold:   5 * time.Second,
		Policies:          DefaultPolicies(),
	}
}

// DefaultPolicies returns the built-in per-type sending windows.
func DefaultPolicies() map[string]MessagePolicy {
	return map[string]MessagePolicy{
		"text":  {Kind: 0, MinHour: 5, MaxHour: 24},
		"voice": {Kind: 1, MinHour: 8, MaxHour: 24},
		"video": {Kind: 2, MinHour: 20, MaxHour: 24},
	}
}

package config

import "time"

// Config holds runtime settings for portalctl.
//
// Fields:
//   - ServerEndpointAddr: host:port of the portal gRPC endpoint.
//   - RequestTimeout: deadline applied to every call.
//   - AccessToken: optional token to start with, e.g. an admin token.
//   - SecretKey: server HMAC secret used by "token <user_id>" to mint tokens.
//
// AccessToken and SecretKey are only read from the environment.
type Config struct {
	ServerEndpointAddr string        `env:"SERVER_ADDR"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT"`
	AccessToken        string        `env:"ACCESS_TOKEN"`
	SecretKey          string        `env:"SECRET_KEY"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

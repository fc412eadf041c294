package config

import (
	"fmt"
	"time"
)

// Config application configuration structure
type Config struct {
	Server ServerConfig
	Proxy  ProxyConfig
}

// ServerConfig HTTP listener configuration
type ServerConfig struct {
	Port            int    // TCP port for the dev server (positional CLI argument, default 8080)
	Root            string // Directory served as static files
	ListenAddress   string // Telemetry listener address
	TelemetryPath   string // Telemetry path
	ShutdownTimeout int    // Graceful shutdown timeout in seconds
}

// ProxyConfig outbound fetch configuration
type ProxyConfig struct {
	UserAgent    string // Identifying label sent with every upstream request
	FetchTimeout int    // Upstream GET timeout in seconds
}

// SetDefaults sets default values
func (c *Config) SetDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Root == "" {
		c.Server.Root = "."
	}
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":9090"
	}
	if c.Server.TelemetryPath == "" {
		c.Server.TelemetryPath = "/metrics"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 5
	}
	if c.Proxy.UserAgent == "" {
		c.Proxy.UserAgent = "OpenHamClock/1.0"
	}
	if c.Proxy.FetchTimeout == 0 {
		c.Proxy.FetchTimeout = 10
	}
}

// Addr returns the main listener address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// GetFetchTimeout gets upstream fetch timeout
func (c *Config) GetFetchTimeout() time.Duration {
	return time.Duration(c.Proxy.FetchTimeout) * time.Second
}

// GetShutdownTimeout gets graceful shutdown timeout
func (c *Config) GetShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}

package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent voxrelay configuration stored as config.toml
// in the .voxrelay/ directory. The TOML layout uses sections for logical grouping.
//
// The upstream API key is never part of Config; it is read from the
// environment on every relay request.
type Config struct {
	Version int           `toml:"version"`
	Relay   RelayConfig   `toml:"relay"`
	API     APIConfig     `toml:"api"`
	Storage StorageConfig `toml:"storage"`
	Cache   CacheConfig   `toml:"cache"`
	Client  ClientConfig  `toml:"client"`
	Events  EventsConfig  `toml:"events"`
}

// RelayConfig holds chat relay settings.
type RelayConfig struct {
	Provider  string `toml:"provider,omitempty"`
	Upstream  string `toml:"upstream,omitempty"`
	Model     string `toml:"model,omitempty"`
	Listen    string `toml:"listen,omitempty"`
	StaticDir string `toml:"static_dir,omitempty"`
}

// APIConfig holds inspection API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// StorageConfig holds the asset cache store settings shared by the
// cache commands, the API server, and talk. With neither set, caches live in
// assets.db inside the .voxrelay/ directory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// CacheConfig holds asset cache worker settings.
type CacheConfig struct {
	Name   string `toml:"name,omitempty"`
	Origin string `toml:"origin,omitempty"`
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for "voxrelay talk" and other commands that
// connect to running servers. Targets are full URLs (scheme + host + port).
type ClientConfig struct {
	RelayTarget       string `toml:"relay_target,omitempty"`
	APITarget         string `toml:"api_target,omitempty"`
	AutoSubmitDelayMs int    `toml:"auto_submit_delay_ms,omitempty"`
	TargetLatencyMs   int    `toml:"target_latency_ms,omitempty"`
	Synthesizer       string `toml:"synthesizer,omitempty"`
}

// EventsConfig holds exchange event stream settings.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	// Brokers is a comma separated list of kafka bootstrap addresses.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"relay.provider": {
		get: func(c *Config) string { return c.Relay.Provider },
		set: func(c *Config, v string) error { c.Relay.Provider = v; return nil },
	},
	"relay.upstream": {
		get: func(c *Config) string { return c.Relay.Upstream },
		set: func(c *Config, v string) error { c.Relay.Upstream = v; return nil },
	},
	"relay.model": {
		get: func(c *Config) string { return c.Relay.Model },
		set: func(c *Config, v string) error { c.Relay.Model = v; return nil },
	},
	"relay.listen": {
		get: func(c *Config) string { return c.Relay.Listen },
		set: func(c *Config, v string) error { c.Relay.Listen = v; return nil },
	},
	"relay.static_dir": {
		get: func(c *Config) string { return c.Relay.StaticDir },
		set: func(c *Config, v string) error { c.Relay.StaticDir = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"cache.name": {
		get: func(c *Config) string { return c.Cache.Name },
		set: func(c *Config, v string) error { c.Cache.Name = v; return nil },
	},
	"cache.origin": {
		get: func(c *Config) string { return c.Cache.Origin },
		set: func(c *Config, v string) error { c.Cache.Origin = v; return nil },
	},
	"cache.listen": {
		get: func(c *Config) string { return c.Cache.Listen },
		set: func(c *Config, v string) error { c.Cache.Listen = v; return nil },
	},
	"client.relay_target": {
		get: func(c *Config) string { return c.Client.RelayTarget },
		set: func(c *Config, v string) error { c.Client.RelayTarget = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"client.auto_submit_delay_ms": intKey("client.auto_submit_delay_ms",
		func(c *Config) *int { return &c.Client.AutoSubmitDelayMs }),
	"client.target_latency_ms": intKey("client.target_latency_ms",
		func(c *Config) *int { return &c.Client.TargetLatencyMs }),
	"client.synthesizer": {
		get: func(c *Config) string { return c.Client.Synthesizer },
		set: func(c *Config, v string) error { c.Client.Synthesizer = v; return nil },
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

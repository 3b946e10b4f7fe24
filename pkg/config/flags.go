package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --upstream
// on both "voxrelay serve" and "voxrelay serve relay").
type Flag struct {
	// Name is the long flag name (e.g. "upstream").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "relay.upstream").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagRelayListen    = "relay-listen"
	FlagAPIListen      = "api-listen"
	FlagUpstream       = "upstream"
	FlagProvider       = "provider"
	FlagModel          = "model"
	FlagStaticDir      = "static-dir"
	FlagSQLite         = "sqlite"
	FlagPostgres       = "postgres"
	FlagCacheName      = "cache-name"
	FlagCacheOrigin    = "origin"
	FlagRelayTarget    = "relay-target"
	FlagAPITarget      = "api-target"
	FlagAutoSubmit     = "auto-submit-ms"
	FlagTargetLatency  = "target-latency-ms"
	FlagSynthesizer    = "synthesizer"
	FlagEventsProvider = "events-provider"
	FlagEventsBrokers  = "events-brokers"
	FlagEventsTopic    = "events-topic"

	// Standalone subcommand variants use "listen" as the flag name
	// but bind to different viper keys depending on the service.
	FlagRelayListenStandalone = "relay-listen-standalone"
	FlagAPIListenStandalone   = "api-listen-standalone"
	FlagCacheListenStandalone = "cache-listen-standalone"
)

// ServeFlags is the registry shared by "voxrelay serve" and its subcommands.
var ServeFlags = FlagSet{
	FlagRelayListen:           {Name: "relay-listen", Shorthand: "r", ViperKey: "relay.listen", Description: "Address for the relay to listen on"},
	FlagAPIListen:             {Name: "api-listen", Shorthand: "a", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagRelayListenStandalone: {Name: "listen", Shorthand: "l", ViperKey: "relay.listen", Description: "Address for the relay to listen on"},
	FlagAPIListenStandalone:   {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagUpstream:              {Name: "upstream", Shorthand: "u", ViperKey: "relay.upstream", Description: "Upstream generative language API URL"},
	FlagProvider:              {Name: "provider", ViperKey: "relay.provider", Description: "LLM provider type (gemini)"},
	FlagModel:                 {Name: "model", Shorthand: "m", ViperKey: "relay.model", Description: "Upstream model name"},
	FlagStaticDir:             {Name: "static-dir", ViperKey: "relay.static_dir", Description: "Directory of static assets served at / (the asset cache origin)"},
	FlagSQLite:                {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite asset cache database (default: assets.db in .voxrelay/)"},
	FlagPostgres:              {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string for the asset cache"},
	FlagEventsProvider:        {Name: "events-provider", ViperKey: "events.provider", Description: "Exchange event stream provider (none, kafka)"},
	FlagEventsBrokers:         {Name: "events-brokers", ViperKey: "events.brokers", Description: "Comma separated kafka brokers"},
	FlagEventsTopic:           {Name: "events-topic", ViperKey: "events.topic", Description: "Kafka topic for exchange events"},
}

// CacheFlags is the registry for "voxrelay cache" subcommands.
var CacheFlags = FlagSet{
	FlagCacheName:             {Name: "name", Shorthand: "n", ViperKey: "cache.name", Description: "Asset cache name"},
	FlagCacheOrigin:           {Name: "origin", Shorthand: "o", ViperKey: "cache.origin", Description: "Origin that serves the asset manifest"},
	FlagCacheListenStandalone: {Name: "listen", Shorthand: "l", ViperKey: "cache.listen", Description: "Address for the cache gateway to listen on"},
	FlagSQLite:                {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite asset cache database (default: assets.db in .voxrelay/)"},
	FlagPostgres:              {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string for the asset cache"},
}

// TalkFlags is the registry for "voxrelay talk".
var TalkFlags = FlagSet{
	FlagRelayTarget:   {Name: "relay-target", Shorthand: "r", ViperKey: "client.relay_target", Description: "Voxrelay relay URL"},
	FlagCacheName:     {Name: "cache-name", ViperKey: "cache.name", Description: "Asset cache name"},
	FlagAutoSubmit:    {Name: "auto-submit-ms", ViperKey: "client.auto_submit_delay_ms", Description: "Delay before a recognized utterance is sent (negative disables)"},
	FlagTargetLatency: {Name: "target-latency-ms", ViperKey: "client.target_latency_ms", Description: "Total turn latency target"},
	FlagSynthesizer:   {Name: "synthesizer", ViperKey: "client.synthesizer", Description: "Speech synthesizer (auto, text, or a command on PATH)"},
	FlagSQLite:        {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite asset cache database (default: assets.db in .voxrelay/)"},
	FlagPostgres:      {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string for the asset cache"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultInt returns the default int value for a viper key from NewDefaultConfig.
func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}

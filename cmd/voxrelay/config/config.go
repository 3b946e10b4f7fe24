// Package configcmder provides the config command for managing persistent
// voxrelay configuration stored in the .voxrelay/ directory.
package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/voxrelay/pkg/cliui"
	"github.com/papercomputeco/voxrelay/pkg/config"
)

const configLongDesc string = `Manage persistent voxrelay configuration.

Configuration is stored as config.toml in the .voxrelay/ directory and provides
default values for command flags. CLI flags and VOXRELAY_* environment
variables always take precedence over config file values.

The upstream API key is never stored here. Set GEMINI_API_KEY in the
environment or in a .env file next to the relay.

Keys use dotted notation matching the TOML section structure:
  relay.provider, relay.upstream, relay.model, relay.listen, relay.static_dir,
  api.listen,
  storage.sqlite_path, storage.postgres_dsn,
  cache.name, cache.origin, cache.listen,
  client.relay_target, client.api_target, client.auto_submit_delay_ms,
  client.target_latency_ms, client.synthesizer,
  events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  voxrelay config set <key> <value>    Set a configuration value
  voxrelay config get <key>            Get a configuration value
  voxrelay config list                 List all configuration values

Examples:
  voxrelay config set relay.model gemini-1.5-pro-latest
  voxrelay config set client.auto_submit_delay_ms 250
  voxrelay config get relay.model
  voxrelay config list`

const configShortDesc string = "Manage persistent voxrelay configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printConfigFile(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

// Package commands implements the itembatch command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/n8nkit/itembatch/batch"
	"github.com/n8nkit/itembatch/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logJSON    bool
}

// NewRootCmd builds the itembatch command tree. Every call returns fresh
// commands and flag state.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "itembatch",
		Short: "Run per-item transforms over JSON work items",
		Long: `itembatch runs a transform over every item of a JSON document, isolating
failures per item and keeping results in input order.

Examples:
  itembatch run --items items.json --require id --field title:strip_html
  itembatch run --items - --aux "Ingestion Sources=sources.json" --n8n
  itembatch normalize "Ingestion Sources" API_Config-v2
  itembatch ops`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (TOML, YAML or JSON)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override (debug/info/warn/error)")
	root.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "Emit JSON log lines")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newNormalizeCmd())
	root.AddCommand(newOpsCmd())
	return root
}

// load reads the configuration and applies the persistent flag overrides.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, batch.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = o.logJSON
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

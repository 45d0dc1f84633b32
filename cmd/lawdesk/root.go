package main

import (
	"encoding/json"
	"fmt"

	"github.com/lawdesk/lawdesk-client/internal/config"
	"github.com/lawdesk/lawdesk-client/pkg/logging"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	envPath    string
	baseURL    string
	logLevel   string

	app *app
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "lawdesk",
		Short:         "Client and caching proxy for the lawdesk case-management API",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath, opts.envPath)
			if err != nil {
				return err
			}
			if opts.baseURL != "" {
				cfg.API.BaseURL = opts.baseURL
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level, _ := logging.ParseLevel(cfg.Log.Level)
			logging.Setup(logging.Config{
				Level:  level,
				Pretty: cfg.Log.Pretty,
				Output: cmd.ErrOrStderr(),
			})

			opts.app, err = newApp(cfg)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.app != nil {
				opts.app.Close()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&opts.envPath, "env-file", ".env", "path to a .env file (ignored if missing)")
	flags.StringVar(&opts.baseURL, "base-url", "", "backend API base URL (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error, disabled")

	cmd.AddCommand(
		newServeCmd(opts),
		newLoginCmd(opts),
		newWhoamiCmd(opts),
		newChatCmd(opts),
		newCasesCmd(opts),
		newClientsCmd(opts),
		newCourtsCmd(opts),
		newSessionsCmd(opts),
	)

	return cmd
}

// printJSON writes v as indented JSON to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

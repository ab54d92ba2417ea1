// Package cli contains all commands of proxyctl
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"keepersecurity.com/ksm-proxy-users/internal/config"
	"keepersecurity.com/ksm-proxy-users/internal/logging"
	"keepersecurity.com/ksm-proxy-users/internal/output"
	"keepersecurity.com/ksm-proxy-users/proxy"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = zerolog.Nop()
	printer *output.Printer
	version = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "proxyctl",
	Short: "Manage users and teams of an LLM proxy",
	Long: `proxyctl administers users and teams of an LLM proxy through its admin API.

Example usage:
  proxyctl list --table                  # List internal users
  proxyctl add --csv-file new_users.csv  # Create users from a CSV file
  proxyctl delete                        # Delete users listed in user_dellist.csv
  proxyctl sync --dry-run                # Show what a sync would change
  proxyctl sync --no-delete              # Create and update, never delete`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return output.ExitSuccess
	}
	p := printer
	if p == nil {
		p = output.NewPrinter(output.PrinterOptions{Colors: true, Out: rootCmd.OutOrStdout(), Err: rootCmd.ErrOrStderr()})
	}
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		p.FormatError(cliErr)
	} else {
		p.Error("%s", err)
	}
	return output.ExitCodeOf(err)
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .proxyctl.yaml)")
	rootCmd.PersistentFlags().String("base-url", "", "proxy base URL (env LITELLM_BASE_URL, default "+config.DefaultBaseUrl+")")
	rootCmd.PersistentFlags().String("master-key", "", "proxy master key (env LITELLM_MASTER_KEY)")
	rootCmd.PersistentFlags().String("ksm-config", "", "base64 Keeper Secrets Manager config used when no master key is set (env KSM_CONFIG_BASE64)")
	rootCmd.PersistentFlags().Bool("debug", false, "print diagnostics to stderr")
	rootCmd.PersistentFlags().Bool("dry-run", false, "show what would change without changing anything")

	rootCmd.AddCommand(addCmd, deleteCmd, listCmd, syncCmd, teamsCmd)
}

// initConfig loads the configuration and sets up logging and output.
func initConfig(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load(cfgFile, rootCmd.PersistentFlags())
	if err != nil {
		return output.SetupError("cannot load configuration", err,
			"Pass --master-key or set LITELLM_MASTER_KEY, or provide a Keeper config with --ksm-config")
	}

	logger = logging.New(logging.Config{
		Level:  logging.LevelOf(cfg.Debug),
		Output: cmd.ErrOrStderr(),
	})
	printer = output.NewPrinter(output.PrinterOptions{
		Colors: cfg.Output.Colors,
		Out:    cmd.OutOrStdout(),
		Err:    cmd.ErrOrStderr(),
	})

	logger.Debug().Str("base_url", cfg.BaseUrl).Bool("dry_run", cfg.DryRun).
		Bool("keeper", cfg.Ksm != nil).Msg("configuration loaded")
	return nil
}

var newDirectory = func(cfg *config.Config, logger zerolog.Logger) proxy.IDirectory {
	return proxy.NewDirectory(cfg.BaseUrl, cfg.MasterKey, logging.WithComponent(logger, "directory"))
}

// directoryError reports a failed initial fetch of the directory.
func directoryError(err error) error {
	return &output.CLIError{
		Summary:    "cannot read users and teams from the proxy",
		Detail:     err.Error(),
		Suggestion: fmt.Sprintf("Check that the proxy at %s is reachable and the master key is valid", cfg.BaseUrl),
		ExitCode:   output.ExitDirectory,
		Err:        err,
	}
}

// writeReport writes a report file and tells the user about it.
func writeReport(fileName string, write func(io.Writer) error) error {
	if err := proxy.WriteCsvFile(fileName, write); err != nil {
		return output.SetupError("cannot write report "+fileName, err, "")
	}
	printer.Info("Report written to %s", fileName)
	return nil
}

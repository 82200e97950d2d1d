package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/potholes/internal/config"
	"github.com/roach88/potholes/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text" | "yaml"
	ConfigFile string

	// EnvFiles overrides config.DefaultEnvFiles (for testing).
	EnvFiles []string

	viper  *viper.Viper
	config *config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the potholes CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "potholes",
		Short: "Pothole tracker maintenance tools",
		Long: `Maintenance tools for the pothole tracker backend.

Repairs frame images that an earlier import truncated, audits how many
truncated images remain, and serves the frontend home page.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default is ./potholes.yaml)")

	cmd.AddCommand(NewFramesCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// Viper returns the configuration registry, creating it on first use so
// commands can bind their flags before the config is loaded.
func (o *RootOptions) Viper() *viper.Viper {
	if o.viper == nil {
		o.viper = viper.New()
	}
	return o.viper
}

// prepare loads the configuration and builds the logger once per process.
// Logs go to the command's stderr so they never mix with formatted output.
func (o *RootOptions) prepare(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	if o.config != nil {
		return o.config, o.logger, nil
	}
	if o.Format == "" {
		o.Format = "text"
	}
	if !isValidFormat(o.Format) {
		return nil, nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	cfg, err := config.Load(o.Viper(), o.ConfigFile, o.EnvFiles...)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger, err := logging.New(cmd.ErrOrStderr(), logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Verbose: o.Verbose,
	})
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to configure logging", err)
	}
	slog.SetDefault(logger)

	o.config = cfg
	o.logger = logger
	return cfg, logger, nil
}

// flagBinding ties a command flag to a config key.
type flagBinding struct {
	flag string
	key  string
}

// bindFlags binds the running command's flags to their config keys; a flag
// wins over env and config file when set. Sibling commands share keys, so
// binding happens at run time rather than when the command is built.
func (o *RootOptions) bindFlags(cmd *cobra.Command, bindings []flagBinding) error {
	for _, b := range bindings {
		if err := o.Viper().BindPFlag(b.key, cmd.Flags().Lookup(b.flag)); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to bind --%s", b.flag), err)
		}
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

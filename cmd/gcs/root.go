package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var subcommandFns = map[string]func(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command{}

func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "gcs",
		Short: "Golomb-coded set tools",
		Long: `Builds Golomb-coded set files from lists of integers or keys
and inspects the layout of existing files.

Every flag can also be set through a GCS_<FLAG> environment variable
or a TOML configuration file given with --config.
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setAllConfig(viper.New(), cmd.Flags(), "GCS")
		},
	}
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")
	rc.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error.")
	for _, subcomFn := range subcommandFns {
		rc.AddCommand(subcomFn(stdin, stdout, stderr))
	}
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// newLogger returns a logfmt logger on w filtered to the --log-level flag.
func newLogger(flags *pflag.FlagSet, w io.Writer) (log.Logger, error) {
	name, err := flags.GetString("log-level")
	if err != nil {
		return nil, err
	}
	var opt level.Option
	switch strings.ToLower(name) {
	case "debug":
		opt = level.AllowDebug()
	case "info":
		opt = level.AllowInfo()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		return nil, fmt.Errorf("unknown log level %q", name)
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	return level.NewFilter(logger, opt), nil
}

// setAllConfig takes a FlagSet to be the definition of all configuration
// options, as well as their defaults. It then reads from the command line, the
// environment, and a config file (if specified), and applies the configuration
// in that priority order.
//
// Environment variables are capitalized flag names with dashes replaced by
// underscores, prefixed with envPrefix plus an underscore.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet, envPrefix string) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %v", c, err)
		}

		validTags := make(map[string]bool)
		flags.VisitAll(func(f *pflag.Flag) {
			validTags[f.Name] = true
		})
		for _, key := range v.AllKeys() {
			if !validTags[key] {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		// Command-line flags win.
		if flagErr != nil || f.Changed {
			return
		}
		if !v.IsSet(f.Name) {
			return
		}
		flagErr = f.Value.Set(v.GetString(f.Name))
	})
	return flagErr
}

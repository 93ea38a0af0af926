// Package main provides the vibe-vcf command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Configuration keys.
const (
	keyRSIDsOnly = "parser.rsids_only"
	keyStrict    = "writer.strict"
	keyDuckDB    = "duckdb.path"
	keyStore     = "store.path"
	keyWorkers   = "transform.workers"
	keyLogLevel  = "log.level"
)

const configName = ".vibe-vcf"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newApp().newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if isUsageError(err) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

// usageError marks errors caused by bad arguments or flags.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func isUsageError(err error) bool {
	var ue *usageError
	return errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command")
}

// usageArgs wraps a cobra argument validator so its errors exit with ExitUsage.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// app holds state shared by all commands.
type app struct {
	v       *viper.Viper
	logger  *zap.Logger
	cfgFile string
	verbose bool
}

func newApp() *app {
	v := viper.New()
	v.SetDefault(keyRSIDsOnly, false)
	v.SetDefault(keyStrict, false)
	v.SetDefault(keyWorkers, 1)
	v.SetDefault(keyLogLevel, "warn")
	return &app{v: v, logger: zap.NewNop()}
}

func (a *app) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vibe-vcf",
		Short: "Parse, check, transform and index VCF files",
		Long: `vibe-vcf reads Variant Call Format files, checks records against the
header, rewrites them through transformations, and loads them into a
badger index or a DuckDB database for lookups.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			return a.initLogger(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.logger.Sync()
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default ~/"+configName+".yaml)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug messages")
	cmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	a.v.BindPFlag(keyLogLevel, cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(
		a.newValidateCmd(),
		a.newNormalizeCmd(),
		a.newIngestCmd(),
		a.newSourcesCmd(),
		a.newIndexCmd(),
		a.newLookupCmd(),
		a.newConfigCmd(),
	)
	return cmd
}

// initConfig reads the config file and the VIBE_VCF_* environment.
// A missing config file is not an error.
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigName(configName)
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("VIBE_VCF")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func (a *app) initLogger(w io.Writer) error {
	level := zapcore.DebugLevel
	if !a.verbose {
		var err error
		level, err = zapcore.ParseLevel(a.v.GetString(keyLogLevel))
		if err != nil {
			return usageErrorf("invalid log level: %w", err)
		}
	}
	enc := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	a.logger = zap.New(core)
	return nil
}

// bind ties config keys to the flags of the command being run. Several
// commands share keys, so binding happens only once the command is known.
func (a *app) bind(cmd *cobra.Command, keyToFlag map[string]string) error {
	for key, name := range keyToFlag {
		if err := a.v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

// openParser opens path as a VCF file; "-" reads the command's input.
func (a *app) openParser(cmd *cobra.Command, path string) (*vcf.Parser, error) {
	var p *vcf.Parser
	if path == "-" {
		p = vcf.NewParserFromReader(cmd.InOrStdin())
	} else {
		var err error
		p, err = vcf.NewParser(path)
		if err != nil {
			if errors.Is(err, vcf.ErrNotVCFFile) {
				return nil, &usageError{err: err}
			}
			return nil, err
		}
	}
	p.SetLogger(a.logger)
	p.SetRSIDsOnly(a.v.GetBool(keyRSIDsOnly))
	return p, nil
}

// dataPath returns the configured path for key, or a default under
// ~/.vibe-vcf.
func (a *app) dataPath(key, name string) (string, error) {
	if p := a.v.GetString(key); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configName, name), nil
}

// createOutput opens path for writing, or the command's output when path
// is empty. The returned close function is never nil.
func createOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

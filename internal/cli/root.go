// Package cli wires the autotrain commands.
package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/YuminosukeSato/autotrain/internal/config"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/pkg/log"
	"github.com/YuminosukeSato/autotrain/store"
)

// app is the state shared by the commands of one invocation.
type app struct {
	cfgFile  string
	logLevel string
	cfg      *cfgpkg.Global
	logger   log.Logger
	stdout   io.Writer
	stderr   io.Writer
}

// NewRootCommand builds the command tree writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "autotrain",
		Short:         "Wash a CSV table and train a regression, SVM or k-means model on it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.autotrain/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(a.washCommand(), a.trainCommand(), a.resultsCommand(), a.configCommand())
	return root
}

func (a *app) load() error {
	c, err := cfgpkg.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		c.LogLevel = a.logLevel
	}
	if err := log.SetupLogger(c.LogLevel, a.stderr); err != nil {
		return err
	}
	a.cfg = c
	a.logger = log.GetLoggerWithName("cli")
	return nil
}

// openStore opens the result database; the caller closes it.
func (a *app) openStore() (*store.SQLiteStore, error) {
	return store.Open(a.cfg.DBPath, a.logger)
}

// render writes v as indented JSON or as YAML.
func render(w io.Writer, format string, v any) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// JSON タグの名前で出力するため一度 JSON を経由する
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(generic)
	}
	return errors.NewValidationError("format", "must be json or yaml", format)
}

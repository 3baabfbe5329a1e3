// Package cli wires the clinicadmin command tree: the reference server and
// the operator commands that drive the admin screens.
package cli

import (
	"clinicadmin/internal/config"
	"clinicadmin/internal/logger"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Streams are the command's standard streams.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

type app struct {
	streams Streams
	cfg     *config.Config
	log     logger.Logger

	baseURL  string
	logLevel string
	logJSON  bool
}

// NewRootCommand builds the clinicadmin command tree.
func NewRootCommand(streams Streams) *cobra.Command {
	if streams.In == nil {
		streams.In = os.Stdin
	}
	if streams.Out == nil {
		streams.Out = os.Stdout
	}
	if streams.Err == nil {
		streams.Err = os.Stderr
	}
	a := &app{streams: streams}

	root := &cobra.Command{
		Use:           "clinicadmin",
		Short:         "Clinic back-office administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)

	flags := root.PersistentFlags()
	flags.StringVar(&a.baseURL, "base-url", "", "server URL used by the screen commands")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&a.logJSON, "log-json", false, "emit JSON logs")

	root.AddCommand(
		newServeCommand(a),
		newListCommand(a),
		newAddCommand(a),
		newEditCommand(a),
		newDeleteCommand(a),
		newExportCommand(a),
	)
	return root
}

// configure loads configuration with flag overrides applied last.
func (a *app) configure(cmd *cobra.Command, extra map[string]any) error {
	overrides := map[string]any{}
	if cmd.Flags().Changed("base-url") {
		overrides["client.base_url"] = a.baseURL
	}
	if cmd.Flags().Changed("log-level") {
		overrides["log.level"] = a.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		overrides["log.json"] = a.logJSON
	}
	for k, v := range extra {
		overrides[k] = v
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(cfg.Log.Level),
		Output:     a.streams.Err,
		JSON:       cfg.Log.JSON,
		TimeFormat: "15:04:05",
	})
	return nil
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.streams.Out, format, args...)
}

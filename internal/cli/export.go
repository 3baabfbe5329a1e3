package cli

import (
	"clinicadmin/internal/adapters/exports"
	"clinicadmin/internal/client"
	"clinicadmin/pkg/domain"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const exportPollInterval = 200 * time.Millisecond

func newExportCommand(a *app) *cobra.Command {
	var (
		format  string
		output  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "export <screen>",
		Short: "Export a whole collection as CSV or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.configure(cmd, nil); err != nil {
				return err
			}
			if _, ok := domain.LookupKind(domain.EntityType(args[0])); !ok {
				return fmt.Errorf("unknown collection %q (choose one of: %s)", args[0], screenNames())
			}
			c, err := client.New(a.cfg.Client, client.WithLogger(a.log.With("component", "client")))
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			rec, err := runExport(ctx, c, args[0], exports.Format(format))
			if err != nil {
				return err
			}
			var w io.Writer = a.streams.Out
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			n, err := c.DownloadExport(ctx, rec.ID, w)
			if err != nil {
				return err
			}
			if w != a.streams.Out {
				a.printf("Exported %d %s rows (%d bytes) to %s\n", rec.Rows, rec.Entity, n, output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(exports.FormatCSV), "csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "how long to wait for the export")
	return cmd
}

// runExport queues an export and polls until it finishes.
func runExport(ctx context.Context, c *client.Client, entity string, format exports.Format) (exports.Record, error) {
	rec, err := c.RequestExport(ctx, domain.EntityType(entity), format)
	if err != nil {
		return exports.Record{}, err
	}
	ticker := time.NewTicker(exportPollInterval)
	defer ticker.Stop()
	for {
		switch rec.Status {
		case exports.StatusSucceeded:
			return rec, nil
		case exports.StatusFailed:
			return rec, fmt.Errorf("export %s failed: %s", rec.ID, rec.Error)
		}
		select {
		case <-ctx.Done():
			return rec, fmt.Errorf("waiting for export %s: %w", rec.ID, ctx.Err())
		case <-ticker.C:
		}
		if rec, err = c.Export(ctx, rec.ID); err != nil {
			return rec, err
		}
	}
}

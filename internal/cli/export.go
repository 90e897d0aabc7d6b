package cli

import (
	"bytes"
	"os"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/exporter"
)

func NewExportCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	var typ, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the whole catalog as CSV or XML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(cmd, rootOpts)
			f, err := exporter.ParseFormat(typ)
			if err != nil {
				return out.Fail(err)
			}
			_, ex, closeFn, err := app.services(cmd.Context())
			if err != nil {
				return out.Fail(err)
			}
			defer closeFn()

			var buf bytes.Buffer
			n, err := ex.Export(cmd.Context(), exporter.Selection{}, f, &buf)
			if err != nil {
				return out.Fail(err)
			}
			if outPath == "" || outPath == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
				return out.Fail(apperr.Validation("write_failed", err.Error()))
			}
			out.VerboseLog("exported %d product(s) to %s", n, outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&typ, "type", "csv", "export format (csv|xml)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file; stdout when empty")

	return cmd
}

// Package cli holds the cobra commands of the catalog tool. Imports and exports run against
// the same services the HTTP API uses.
package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/exporter"
	"github.com/ariefcatur/go-storefront/internal/importer"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

var ValidFormats = []string{"text", "json"}

// App opens the catalog store on demand; sample needs no database.
type App struct {
	Open   func(ctx context.Context) (catalog.Store, func(), error)
	Import config.ImportConfig
	Log    *zap.Logger
	Now    func() time.Time
}

func (a *App) services(ctx context.Context) (*importer.Importer, *exporter.Exporter, func(), error) {
	store, closeFn, err := a.Open(ctx)
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitCommandError, "open catalog store", err)
	}
	log := a.Log
	if log == nil {
		log = zap.NewNop()
	}
	ex := exporter.New(store, log)
	if a.Now != nil {
		ex.Now = a.Now
	}
	return importer.New(store, a.Import, log), ex, closeFn, nil
}

func NewRootCommand(app *App) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "catalog",
		Short:         "Storefront catalog tool",
		Long:          "Import product sheets and WordPress exports into the storefront catalog, or export it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "report format (json|text)")

	cmd.AddCommand(NewImportCSVCommand(app, opts))
	cmd.AddCommand(NewImportWXRCommand(app, opts))
	cmd.AddCommand(NewExportCommand(app, opts))
	cmd.AddCommand(NewSampleCommand())

	return cmd
}

func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

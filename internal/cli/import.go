package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/importer"
)

func NewImportCSVCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	var (
		opts       importer.CSVOptions
		mappingRaw string
	)

	cmd := &cobra.Command{
		Use:   "import-csv FILE",
		Short: "Import a product sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(cmd, rootOpts)
			mapping, err := importer.ParseCategoryMapping(mappingRaw)
			if err != nil {
				return out.Fail(err)
			}
			opts.CategoryMapping = mapping

			im, _, closeFn, err := app.services(cmd.Context())
			if err != nil {
				return out.Fail(err)
			}
			defer closeFn()

			f, err := openUpload(im, args[0], ".csv")
			if err != nil {
				return out.Fail(err)
			}
			defer f.Close()

			out.VerboseLog("importing %s", args[0])
			res, err := im.ImportCSV(cmd.Context(), f, opts)
			if err != nil {
				return out.Fail(err)
			}
			title := "import completed"
			if opts.ValidateOnly {
				title = "validation completed"
			}
			return out.Report(title, res)
		},
	}

	cmd.Flags().BoolVar(&opts.ValidateOnly, "validate-only", false, "check the file without writing")
	cmd.Flags().BoolVar(&opts.UpdateExisting, "update-existing", false, "update products whose SKU already exists")
	cmd.Flags().BoolVar(&opts.SkipInvalid, "skip-invalid", false, "skip invalid rows instead of failing the run")
	cmd.Flags().StringVar(&mappingRaw, "category-map", "", "JSON object mapping category names to ids")

	return cmd
}

func NewImportWXRCommand(app *App, rootOpts *RootOptions) *cobra.Command {
	var (
		opts       importer.WXROptions
		mappingRaw string
	)

	cmd := &cobra.Command{
		Use:   "import-wxr FILE...",
		Short: "Import WordPress WXR exports with their variations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(cmd, rootOpts)
			mapping, err := importer.ParseCategoryMapping(mappingRaw)
			if err != nil {
				return out.Fail(err)
			}
			opts.CategoryMapping = mapping
			opts.DefaultCurrency = strings.ToUpper(strings.TrimSpace(opts.DefaultCurrency))

			im, _, closeFn, err := app.services(cmd.Context())
			if err != nil {
				return out.Fail(err)
			}
			defer closeFn()

			sources := make([]importer.Source, 0, len(args))
			for _, path := range args {
				f, err := openUpload(im, path, ".xml")
				if err != nil {
					return out.Fail(err)
				}
				defer f.Close()
				sources = append(sources, importer.Source{Name: filepath.Base(path), Reader: f})
			}

			out.VerboseLog("importing %d file(s)", len(sources))
			res, err := im.ImportWXR(cmd.Context(), sources, opts)
			if err != nil {
				return out.Fail(err)
			}
			return out.Report("import finished", res)
		},
	}

	cmd.Flags().StringVar(&opts.DefaultCurrency, "currency", "", "currency for imported products")
	cmd.Flags().BoolVar(&opts.UpdateExisting, "update-existing", false, "update products whose SKU already exists")
	cmd.Flags().BoolVar(&opts.SkipInvalid, "skip-invalid", false, "skip invalid products instead of failing the file")
	cmd.Flags().BoolVar(&opts.AutoCreateCategories, "auto-create-categories", false, "create missing categories by name")
	cmd.Flags().BoolVar(&opts.CreateAllVariants, "create-all-variants", false, "create every color x size combination")
	cmd.Flags().StringVar(&mappingRaw, "category-map", "", "JSON object mapping category names to ids")

	return cmd
}

// openUpload applies the same extension and size limits as the HTTP upload.
func openUpload(im *importer.Importer, path string, ext string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Validation("file_unreadable", err.Error())
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apperr.Validation("file_unreadable", err.Error())
	}
	if err := im.CheckFile(filepath.Base(path), info.Size(), ext); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

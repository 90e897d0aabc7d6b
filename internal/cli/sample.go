package cli

import (
	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-storefront/internal/importer"
)

func NewSampleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Print a CSV template with every supported column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(importer.SampleCSV())
			return err
		},
	}
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/actualbridge/actualbridge/internal/bridge"
)

func newValidateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Test the connection to the Actual server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, b, _, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx := cmd.Context()
			if err := b.TestConnection(ctx); err != nil {
				return fmt.Errorf("%s: %w", bridge.ErrorCode(err), err)
			}

			name, err := b.BudgetName(ctx)
			if err != nil {
				return err
			}
			fileID, err := b.FileID(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Connected to %q (file %s)\n", name, fileID)
			return nil
		},
	}
}

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/actualbridge/actualbridge/internal/config"
)

func newInitCommand() *cobra.Command {
	var endpoint string
	var file string

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "actualbridge.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			return runInit(path, endpoint, file)
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "http://localhost:5006", "Actual server URL")
	cmd.Flags().StringVar(&file, "file", "", "budget file name or sync ID (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runInit(path, endpoint, file string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	cfg := config.Default(endpoint, file)
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Printf("Set the server password in it, or export %s.\n", config.EnvPassword)
	return nil
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/narumatt/sqlitefs/internal/config"
)

var boundConfig config.Config

var rootCmd = &cobra.Command{
	Use:   "sqlitefs <mountpoint> [db-path]",
	Short: "Mount a SQLite-backed filesystem over FUSE",
	Long: `sqlitefs is a FUSE file system whose entire persistent state -
metadata, directory entries, file data, and extended attributes - lives in a
single SQLite database file.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.Unmarshal(&boundConfig); err != nil {
			return fmt.Errorf("binding flags: %w", err)
		}

		mountPoint, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving mount point: %w", err)
		}
		boundConfig.MountPoint = mountPoint

		if len(args) == 2 {
			boundConfig.DBPath = args[1]
		} else {
			boundConfig.DBPath = ":memory:"
		}

		return mountAndJoin(&boundConfig)
	},
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	if err := config.BindFlags(rootCmd.Flags()); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("binding flags: %w", err))
		os.Exit(1)
	}
}

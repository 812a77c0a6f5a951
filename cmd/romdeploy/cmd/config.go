package cmd

import (
	"fmt"
	"os"

	"github.com/javi11/romdeploy/internal/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), configPath())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configPathCmd)

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
}

func configPath() string {
	if configFile != "" {
		return configFile
	}
	return config.DefaultConfigPath()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath()

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("config file %s already exists, use --force to overwrite", path)
	}

	if err := config.SaveToFile(config.DefaultConfig(), path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

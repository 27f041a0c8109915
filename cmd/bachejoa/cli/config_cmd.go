package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/642studio/bachejoa/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage Bachejoa configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default bachejoa.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Printf("Created %s\n", path)
			fmt.Println("Edit the store and uploads sections, then run 'bachejoa serve'.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVarP(&path, "output", "o", "bachejoa.yaml", "Path of the file to write")

	return cmd
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration",
		Long:  "Print the merged configuration from defaults, file and BACHEJOA_* environment variables. Secrets are masked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if configFile := viper.ConfigFileUsed(); configFile != "" {
				fmt.Printf("# Config file: %s\n", configFile)
			} else {
				fmt.Println("# Config file: (none found, using defaults)")
			}

			data, err := yaml.Marshal(cfg.Redacted())
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

package cmd

import (
	"fmt"
	"strconv"

	cfgpkg "github.com/KaramelBytes/tripboard/internal/config"
	"github.com/KaramelBytes/tripboard/internal/dataset"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Tripboard configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		files := cfg.Files()
		fmt.Fprintf(out, "data_dir: %s\n", cfg.DataDir)
		fmt.Fprintf(out, "trips_file: %s (%s)\n", cfg.TripsFile, files.Trips)
		fmt.Fprintf(out, "cars_file: %s (%s)\n", cfg.CarsFile, files.Cars)
		fmt.Fprintf(out, "cities_file: %s (%s)\n", cfg.CitiesFile, files.Cities)
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		}
		if cfg.Decimal != "" {
			fmt.Fprintf(out, "decimal: %q\n", cfg.Decimal)
		}
		if cfg.Sheet != "" {
			fmt.Fprintf(out, "sheet: %s\n", cfg.Sheet)
		}
		fmt.Fprintf(out, "cache_policy: %s\n", cfg.CachePolicy)
		fmt.Fprintf(out, "preview_rows: %d\n", cfg.PreviewRows)
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(out, "assets_host: %s\n", cfg.AssetsHost)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "data_dir":
			cfg.DataDir = val
		case "trips_file":
			cfg.TripsFile = val
		case "cars_file":
			cfg.CarsFile = val
		case "cities_file":
			cfg.CitiesFile = val
		case "delimiter":
			cfg.Delimiter = val
			if _, err := cfg.DatasetOptions(); err != nil {
				return err
			}
		case "decimal":
			cfg.Decimal = val
			if _, err := cfg.DatasetOptions(); err != nil {
				return err
			}
		case "sheet":
			cfg.Sheet = val
		case "cache_policy":
			p, err := dataset.ParsePolicy(val)
			if err != nil {
				return err
			}
			cfg.CachePolicy = string(p)
		case "preview_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for preview_rows: %v", val)
			}
			cfg.PreviewRows = i
		case "listen_addr":
			cfg.ListenAddr = val
		case "assets_host":
			cfg.AssetsHost = val
		case "log_level":
			cfg.LogLevel = val
		case "log_format":
			switch val {
			case "json", "console":
				cfg.LogFormat = val
			default:
				return fmt.Errorf("invalid log_format: %s (use console or json)", val)
			}
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

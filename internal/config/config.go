package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/tripboard/internal/dataset"
	"github.com/KaramelBytes/tripboard/internal/pipeline"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Data sources. Relative file names resolve against DataDir.
	DataDir    string `mapstructure:"data_dir" yaml:"data_dir"`
	TripsFile  string `mapstructure:"trips_file" yaml:"trips_file"`
	CarsFile   string `mapstructure:"cars_file" yaml:"cars_file"`
	CitiesFile string `mapstructure:"cities_file" yaml:"cities_file"`
	Delimiter  string `mapstructure:"delimiter" yaml:"delimiter"`
	Decimal    string `mapstructure:"decimal" yaml:"decimal"`
	// Sheet picks the worksheet of .xlsx sources; empty means the first one.
	Sheet string `mapstructure:"sheet" yaml:"sheet"`
	// CachePolicy: session (load once) or mtime (reload on file change).
	CachePolicy string `mapstructure:"cache_policy" yaml:"cache_policy"`

	PreviewRows int    `mapstructure:"preview_rows" yaml:"preview_rows"`
	ListenAddr  string `mapstructure:"listen_addr" yaml:"listen_addr"`
	AssetsHost  string `mapstructure:"assets_host" yaml:"assets_host"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Files resolves the three source paths.
func (g *Global) Files() dataset.Files {
	resolve := func(name string) string {
		if filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(g.DataDir, name)
	}
	return dataset.Files{
		Trips:  resolve(g.TripsFile),
		Cars:   resolve(g.CarsFile),
		Cities: resolve(g.CitiesFile),
	}
}

// DatasetOptions converts delimiter/decimal settings to loader options.
func (g *Global) DatasetOptions() (dataset.Options, error) {
	opt := dataset.Options{Sheet: g.Sheet}
	switch g.Delimiter {
	case "", "auto":
	case ",":
		opt.Delimiter = ','
	case ";":
		opt.Delimiter = ';'
	case "\t", "tab":
		opt.Delimiter = '\t'
	default:
		return opt, fmt.Errorf("unsupported delimiter: %s (use ',' | ';' | 'tab')", g.Delimiter)
	}
	switch g.Decimal {
	case "", ".", "dot":
	case ",", "comma":
		opt.DecimalSeparator = ','
	default:
		return opt, fmt.Errorf("unsupported decimal: %s (use '.' | 'comma')", g.Decimal)
	}
	return opt, nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tripboard"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tripboard/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TRIPBOARD")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data_dir", ".")
	v.SetDefault("trips_file", filepath.Join("datasets", "trips.csv"))
	v.SetDefault("cars_file", filepath.Join("datasets", "cars.csv"))
	v.SetDefault("cities_file", filepath.Join("datasets", "cities.csv"))
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal", "")
	v.SetDefault("sheet", "")
	v.SetDefault("cache_policy", string(dataset.PolicySession))
	v.SetDefault("preview_rows", pipeline.DefaultPreviewRows)
	v.SetDefault("listen_addr", "127.0.0.1:8501")
	v.SetDefault("assets_host", "https://go-echarts.github.io/go-echarts-assets/assets/")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if _, err := dataset.ParsePolicy(c.CachePolicy); err != nil {
		return nil, err
	}
	return &c, nil
}

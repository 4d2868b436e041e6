package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/dairyreport/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultRequiredColumns are the headers every row of the data sheet must carry.
var DefaultRequiredColumns = []string{
	"Date",
	"Milk_Input_Ltrs",
	"Milk_Purchase_Price_per_Litre",
	"Ingredient_Cost_RS",
	"Labour_Cost_RS",
	"Utility_Cost_RS",
	"Paneer_Output_Kg",
	"Selling_Price_per_Kg_RS",
	"Fat_Percent",
	"SNF_Percent",
	"SOP_Adherence_Score",
	"Capacity_Utilization_Percent",
}

// Global configuration structure.
type Global struct {
	// Report semantics
	TargetYear               int      `mapstructure:"target_year" yaml:"target_year"`
	AnomalyBandWidth         float64  `mapstructure:"anomaly_band_width_in_stddevs" yaml:"anomaly_band_width_in_stddevs"`
	DataSheetName            string   `mapstructure:"data_sheet_name" yaml:"data_sheet_name"`
	RequiredColumns          []string `mapstructure:"required_columns" yaml:"required_columns"`
	SplitAbnormalDirection   bool     `mapstructure:"split_abnormal_direction" yaml:"split_abnormal_direction"`
	PreviewRows              int      `mapstructure:"preview_rows" yaml:"preview_rows"`
	CapacityReferencePercent float64  `mapstructure:"capacity_reference_percent" yaml:"capacity_reference_percent"`

	// Number formatting
	Locale         string `mapstructure:"locale" yaml:"locale"`
	CurrencySymbol string `mapstructure:"currency_symbol" yaml:"currency_symbol"`

	// HTTP server
	ListenAddr         string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxUploadMB        int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	SessionTTLMinutes  int      `mapstructure:"session_ttl_minutes" yaml:"session_ttl_minutes"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins" yaml:"cors_allowed_origins"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Default returns the built-in configuration without consulting files or env.
func Default() *Global {
	return &Global{
		TargetYear:               2024,
		AnomalyBandWidth:         1.0,
		DataSheetName:            "Data",
		RequiredColumns:          append([]string(nil), DefaultRequiredColumns...),
		SplitAbnormalDirection:   true,
		PreviewRows:              5,
		CapacityReferencePercent: 100,
		Locale:                   "en-IN",
		CurrencySymbol:           "₹",
		ListenAddr:               ":8501",
		MaxUploadMB:              50,
		SessionTTLMinutes:        30,
		CORSAllowedOrigins:       []string{"*"},
		LogLevel:                 "info",
		LogFormat:                "text",
	}
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dairyreport/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, ".dairyreport", "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file (cfgFile or ~/.dairyreport/config.yaml) > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DAIRYREPORT")
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("target_year", d.TargetYear)
	v.SetDefault("anomaly_band_width_in_stddevs", d.AnomalyBandWidth)
	v.SetDefault("data_sheet_name", d.DataSheetName)
	v.SetDefault("required_columns", d.RequiredColumns)
	v.SetDefault("split_abnormal_direction", d.SplitAbnormalDirection)
	v.SetDefault("preview_rows", d.PreviewRows)
	v.SetDefault("capacity_reference_percent", d.CapacityReferencePercent)
	v.SetDefault("locale", d.Locale)
	v.SetDefault("currency_symbol", d.CurrencySymbol)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("max_upload_mb", d.MaxUploadMB)
	v.SetDefault("session_ttl_minutes", d.SessionTTLMinutes)
	v.SetDefault("cors_allowed_origins", d.CORSAllowedOrigins)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".dairyreport"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values the report pipeline cannot work with.
func (c *Global) Validate() error {
	if c.TargetYear <= 0 {
		return fmt.Errorf("invalid target_year: %d", c.TargetYear)
	}
	if c.AnomalyBandWidth < 0 {
		return fmt.Errorf("invalid anomaly_band_width_in_stddevs: %v", c.AnomalyBandWidth)
	}
	if c.DataSheetName == "" {
		return fmt.Errorf("data_sheet_name must not be empty")
	}
	if c.PreviewRows < 0 {
		return fmt.Errorf("invalid preview_rows: %d", c.PreviewRows)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max_upload_mb: %d", c.MaxUploadMB)
	}
	return nil
}

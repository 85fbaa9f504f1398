package configure

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func checkErr(err error) {
	if err != nil {
		zap.S().Fatalw("config",
			"error", err,
		)
	}
}

func New() *Config {
	initLogging("info")

	config := viper.New()

	// Default config
	b, _ := json.Marshal(defaultConfig())
	tmp := viper.New()
	tmp.SetConfigType("json")
	checkErr(tmp.ReadConfig(bytes.NewReader(b)))
	checkErr(config.MergeConfigMap(tmp.AllSettings()))

	pflag.String("config", "config.yaml", "Config file location")
	pflag.Bool("noheader", false, "Disable the startup header")

	pflag.Parse()
	checkErr(config.BindPFlags(pflag.CommandLine))

	// File
	config.SetConfigFile(config.GetString("config"))
	config.AddConfigPath(".")
	if err := config.ReadInConfig(); err == nil {
		checkErr(config.MergeInConfig())
	}

	bindEnvs(config, Config{})

	// Environment
	config.AutomaticEnv()
	config.SetEnvPrefix("BD")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AllowEmptyEnv(true)

	c := &Config{}
	checkErr(config.Unmarshal(&c))

	initLogging(c.Level)

	return c
}

func defaultConfig() Config {
	c := Config{
		Level:      "info",
		ConfigFile: "config.yaml",
	}

	c.Optimizer.Desktop.Width = 1920
	c.Optimizer.Desktop.Quality = 0.8
	c.Optimizer.Mobile.Width = 720
	c.Optimizer.Mobile.Quality = 0.7
	c.Optimizer.ConvertBinary = "magick"
	c.Optimizer.ConvertTimeoutSeconds = 30
	c.Optimizer.MaxWidth = 16384
	c.Optimizer.MaxHeight = 16384

	c.History.Limit = 20
	c.Store.Dir = "data"

	c.API.Enabled = true
	c.API.Bind = "0.0.0.0:3100"
	c.API.MaxUploadBytes = 64 << 20

	c.Health.Bind = "0.0.0.0:3200"
	c.Monitoring.Bind = "0.0.0.0:3300"

	return c
}

func bindEnvs(config *viper.Viper, iface interface{}, parts ...string) {
	ifv := reflect.ValueOf(iface)
	ift := reflect.TypeOf(iface)
	for i := 0; i < ift.NumField(); i++ {
		v := ifv.Field(i)
		t := ift.Field(i)
		tv, ok := t.Tag.Lookup("mapstructure")
		if !ok {
			continue
		}
		switch v.Kind() {
		case reflect.Struct:
			bindEnvs(config, v.Interface(), append(parts, tv)...)
		default:
			_ = config.BindEnv(strings.Join(append(parts, tv), "."))
		}
	}
}

type Config struct {
	Level      string `mapstructure:"level" json:"level"`
	ConfigFile string `mapstructure:"config" json:"config"`
	NoHeader   bool   `mapstructure:"noheader" json:"noheader"`

	Optimizer struct {
		Desktop VariantConfig `mapstructure:"desktop" json:"desktop"`
		Mobile  VariantConfig `mapstructure:"mobile" json:"mobile"`

		ConvertBinary         string `mapstructure:"convert_binary" json:"convert_binary"`
		ConvertTimeoutSeconds int    `mapstructure:"convert_timeout_seconds" json:"convert_timeout_seconds"`
		TempDir               string `mapstructure:"temp_dir" json:"temp_dir"`

		MaxWidth  int `mapstructure:"max_width" json:"max_width"`
		MaxHeight int `mapstructure:"max_height" json:"max_height"`
	} `mapstructure:"optimizer" json:"optimizer"`

	History struct {
		Limit int `mapstructure:"limit" json:"limit"`
	} `mapstructure:"history" json:"history"`

	Store struct {
		Dir string `mapstructure:"dir" json:"dir"`
	} `mapstructure:"store" json:"store"`

	API struct {
		Bind           string `mapstructure:"bind" json:"bind"`
		Enabled        bool   `mapstructure:"enabled" json:"enabled"`
		MaxUploadBytes int    `mapstructure:"max_upload_bytes" json:"max_upload_bytes"`
	} `mapstructure:"api" json:"api"`

	Health struct {
		Bind    string `mapstructure:"bind" json:"bind"`
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
	} `mapstructure:"health" json:"health"`

	Monitoring struct {
		Bind    string `mapstructure:"bind" json:"bind"`
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
		Labels  Labels `mapstructure:"labels" json:"labels"`
	} `mapstructure:"monitoring" json:"monitoring"`
}

type VariantConfig struct {
	Width   int     `mapstructure:"width" json:"width"`
	Quality float64 `mapstructure:"quality" json:"quality"`
}

type Labels []struct {
	Key   string `mapstructure:"key" json:"key"`
	Value string `mapstructure:"value" json:"value"`
}

func (l Labels) ToPrometheus() prometheus.Labels {
	mp := prometheus.Labels{}

	for _, v := range l {
		mp[v.Key] = v.Value
	}

	return mp
}

// Package config loads the service configuration from a YAML file with
// CONTEO_* environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

type WebConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	BaseURL         string        `yaml:"base_url"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (c WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	SSLMode  string `yaml:"sslmode"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// DSN is the postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Passwd, c.Name, c.SSLMode)
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// BackendConfig points the admin screen at the catalog API and tells the
// catalog where uploads go.
type BackendConfig struct {
	URL       string        `yaml:"url"`
	Timeout   time.Duration `yaml:"timeout"`
	UploadDir string        `yaml:"upload_dir"`
}

type AdminConfig struct {
	NodeID          int64         `yaml:"node_id"`
	Workers         int           `yaml:"workers"`
	MutationTimeout time.Duration `yaml:"mutation_timeout"`
	ListMaxAge      time.Duration `yaml:"list_max_age"`
	DialogTTL       time.Duration `yaml:"dialog_ttl"`
	SweepSpec       string        `yaml:"sweep_spec"`
}

type AppConfig struct {
	System   SysConfig     `yaml:"system"`
	Web      WebConfig     `yaml:"web"`
	Database DBConfig      `yaml:"database"`
	Logger   LogConfig     `yaml:"logger"`
	Backend  BackendConfig `yaml:"backend"`
	Admin    AdminConfig   `yaml:"admin"`
}

// DefaultConfig runs everything on one local process.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "conteo-admin",
			Location: "UTC",
			Workdir:  "/var/conteo",
		},
		Web: WebConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			BaseURL:         "http://localhost:8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DBConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "conteo",
			User:     "postgres",
			Passwd:   "postgres",
			SSLMode:  "disable",
			MaxConn:  50,
			IdleConn: 10,
		},
		Logger: LogConfig{
			Mode:     "development",
			Filename: "/var/conteo/logs/conteo.log",
		},
		Backend: BackendConfig{
			URL:       "http://127.0.0.1:8080",
			Timeout:   15 * time.Second,
			UploadDir: "/var/conteo/uploads",
		},
		Admin: AdminConfig{
			NodeID:          1,
			Workers:         16,
			MutationTimeout: 30 * time.Second,
			DialogTTL:       30 * time.Minute,
			SweepSpec:       "@every 1m",
		},
	}
}

// LoadConfig reads cfile over the defaults, then applies environment
// overrides. A missing file is not an error when cfile is empty.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := DefaultConfig()
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfile)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", cfile)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv() error {
	setString(&c.System.Location, "CONTEO_SYSTEM_LOCATION")
	setString(&c.System.Workdir, "CONTEO_SYSTEM_WORKDIR")
	setString(&c.Web.Host, "CONTEO_WEB_HOST")
	setString(&c.Web.BaseURL, "CONTEO_WEB_BASE_URL")
	setString(&c.Database.Host, "CONTEO_DB_HOST")
	setString(&c.Database.Name, "CONTEO_DB_NAME")
	setString(&c.Database.User, "CONTEO_DB_USER")
	setString(&c.Database.Passwd, "CONTEO_DB_PASSWD")
	setString(&c.Database.SSLMode, "CONTEO_DB_SSLMODE")
	setString(&c.Logger.Mode, "CONTEO_LOGGER_MODE")
	setString(&c.Logger.Filename, "CONTEO_LOGGER_FILENAME")
	setString(&c.Backend.URL, "CONTEO_BACKEND_URL")
	setString(&c.Backend.UploadDir, "CONTEO_BACKEND_UPLOAD_DIR")
	setString(&c.Admin.SweepSpec, "CONTEO_ADMIN_SWEEP_SPEC")

	for _, err := range []error{
		setBool(&c.System.Debug, "CONTEO_SYSTEM_DEBUG"),
		setInt(&c.Web.Port, "CONTEO_WEB_PORT"),
		setInt(&c.Database.Port, "CONTEO_DB_PORT"),
		setInt(&c.Database.MaxConn, "CONTEO_DB_MAX_CONN"),
		setBool(&c.Database.Debug, "CONTEO_DB_DEBUG"),
		setBool(&c.Logger.FileEnable, "CONTEO_LOGGER_FILE_ENABLE"),
		setDuration(&c.Backend.Timeout, "CONTEO_BACKEND_TIMEOUT"),
		setInt(&c.Admin.Workers, "CONTEO_ADMIN_WORKERS"),
		setDuration(&c.Admin.DialogTTL, "CONTEO_ADMIN_DIALOG_TTL"),
		setDuration(&c.Admin.ListMaxAge, "CONTEO_ADMIN_LIST_MAX_AGE"),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, name string) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return errors.Wrapf(err, "env %s", name)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, name string) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return errors.Wrapf(err, "env %s", name)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, name string) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return errors.Wrapf(err, "env %s", name)
	}
	*dst = d
	return nil
}

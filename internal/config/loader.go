package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// DefaultConfigFile is read when no --config flag is given and the file exists.
const DefaultConfigFile = "~/.inventory/config.yaml"

// Load reads configuration from the optional YAML file and environment variables.
// Environment variables win over the file, the file wins over defaults.
// Returns an error if the file is unreadable or validation fails.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	explicit := configFile != ""
	if !explicit {
		configFile = DefaultConfigFile
	}
	path := ExpandHome(configFile)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config load: read %s", path)
		}
	} else if explicit {
		return nil, errors.Wrapf(err, "config load: %s", path)
	}

	cfg := &Config{}
	if err := loadStruct(v, reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, errors.Wrap(err, "config load")
	}

	cfg.Storage.Path = ExpandHome(cfg.Storage.Path)
	cfg.Failures.Dir = ExpandHome(cfg.Failures.Dir)
	cfg.Plugins.Dir = ExpandHome(cfg.Plugins.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation")
	}

	return cfg, nil
}

// loadStruct walks the struct, registering each field's default and env
// bindings with v and then reading the resolved value back.
func loadStruct(v *viper.Viper, val reflect.Value, prefix string) error {
	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := val.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		key := field.Tag.Get("key")
		if key == "" {
			key = strings.ToLower(field.Name)
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(v, fieldVal, key); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		required := field.Tag.Get("required") == "true"

		if def := field.Tag.Get("default"); def != "" {
			v.SetDefault(key, def)
		}
		if envName != "" {
			names := []string{key, envName}
			if envAlt != "" {
				names = append(names, envAlt)
			}
			if err := v.BindEnv(names...); err != nil {
				return errors.Wrapf(err, "bind %s", envName)
			}
		}

		value := stringValue(v.Get(key))
		if value == "" {
			if required {
				return errors.Newf("required setting %s (%s) is not set", key, envName)
			}
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return errors.Wrapf(err, "invalid value for %s=%q", key, value)
		}
	}

	return nil
}

// stringValue flattens what viper returns (env strings, YAML scalars or
// lists) into the comma-separated form setField understands.
func stringValue(raw any) string {
	switch x := raw.(type) {
	case nil:
		return ""
	case string:
		return x
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(x, ",")
	default:
		return fmt.Sprint(x)
	}
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return errors.Wrap(err, "invalid duration")
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return errors.Wrap(err, "invalid integer")
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrap(err, "invalid boolean")
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return errors.Newf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return errors.Newf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Storage.Driver) {
	case DriverSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, "INVENTORY_DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.URL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Sprintf("INVENTORY_DB_DRIVER (%q) must be one of: sqlite, postgres, memory", c.Storage.Driver))
	}
	if c.Storage.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Storage.ConnectTimeout <= 0 {
		errs = append(errs, "INVENTORY_DB_CONNECT_TIMEOUT must be positive")
	}

	if c.Failures.Dir == "" {
		errs = append(errs, "INVENTORY_FAILED_DIR must not be empty")
	}
	validArtifactFormats := map[string]bool{"json": true, "csv": true}
	if !validArtifactFormats[strings.ToLower(c.Failures.Format)] {
		errs = append(errs, fmt.Sprintf("INVENTORY_FAILED_FORMAT (%q) must be one of: json, csv", c.Failures.Format))
	}
	if c.Failures.Retention <= 0 {
		errs = append(errs, "INVENTORY_FAILED_RETENTION must be positive")
	}

	if c.Import.MaxRepairAttempts <= 0 {
		errs = append(errs, "INVENTORY_MAX_REPAIR_ATTEMPTS must be positive")
	}

	if _, err := semver.NewConstraint(c.Plugins.Constraint); err != nil {
		errs = append(errs, fmt.Sprintf("INVENTORY_PLUGIN_CONSTRAINT (%q) is not a valid version range", c.Plugins.Constraint))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return errors.Newf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// The database URL is masked.
func (c *Config) String() string {
	url := ""
	if c.Storage.URL != "" {
		url = "[MASKED]"
	}
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Storage: {Driver: %q, Path: %q, URL: %s, MaxConns: %d}, ",
		c.Storage.Driver, c.Storage.Path, url, c.Storage.MaxConns)
	fmt.Fprintf(&b, "Failures: {Dir: %q, Format: %q, KeepResolved: %v}, ",
		c.Failures.Dir, c.Failures.Format, c.Failures.KeepResolved)
	fmt.Fprintf(&b, "Import: {Platforms: %v, Baseline: %v, NonInteractive: %v, MaxRepairAttempts: %d}, ",
		c.Import.Platforms, c.Import.Baseline, c.Import.NonInteractive, c.Import.MaxRepairAttempts)
	fmt.Fprintf(&b, "Plugins: {Dir: %q, Constraint: %q}, ",
		c.Plugins.Dir, c.Plugins.Constraint)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

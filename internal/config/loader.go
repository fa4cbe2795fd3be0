package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "CLAUSEMARK_"

	maxConfigFileSize = 1024 * 1024
	systemConfigDir   = "/etc/clausemark"
)

// Dir returns the per-user config directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "clausemark"), nil
}

// DefaultPath returns the per-user config file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadWithFile loads configuration with this precedence, highest first:
//
//  1. CLAUSEMARK_* environment variables
//  2. the YAML file at configPath (default ~/.config/clausemark/config.yaml)
//  3. Default()
//
// A missing file is not an error. An existing file must live under
// ~/.config/clausemark/ or /etc/clausemark/, be mode 0600 or 0400, and be
// at most 1MB.
//
// Environment names are the dotted key with dots turned into
// underscores, upper-cased and prefixed:
//
//	CLAUSEMARK_SERVER_HTTP_PORT       -> server.http_port
//	CLAUSEMARK_LOGGING_SAMPLING_TICK  -> logging.sampling.tick
//	CLAUSEMARK_ENGINE_HIDDEN_CLASSES  -> engine.hidden_classes (comma separated)
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}
	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	keys := leafKeys(reflect.TypeOf(Config{}), "")
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(name, value string) (string, interface{}) {
		return envValue(name, value, keys)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// readConfigFile opens path once and checks the open descriptor, so the
// file checked is the file read.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// EnsureConfigDir creates the per-user config directory with mode 0700.
func EnsureConfigDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return nil
}

// validateConfigPath rejects paths outside the allowed directories, after
// resolving symlinks. The file need not exist.
func validateConfigPath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		resolved = abs
	}

	userDir, err := Dir()
	if err != nil {
		return err
	}
	for _, dir := range []string{userDir, systemConfigDir} {
		if within(resolved, dir) {
			return nil
		}
		if r, err := filepath.EvalSymlinks(dir); err == nil && within(resolved, r) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/clausemark/ or %s/", systemConfigDir)
}

// within reports whether path is dir or lies beneath it.
func within(path, dir string) bool {
	dir = filepath.Clean(dir)
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

// validateConfigFileProperties checks permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// leafKey is one configurable value: its dotted koanf path and whether it
// holds a list.
type leafKey struct {
	path string
	list bool
}

// envKey maps CLAUSEMARK_SECTION_FIELD_NAME to its dotted key. Known
// leaf keys win; anything else splits on the first underscore.
func envKey(name string, keys map[string]leafKey) string {
	flat := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if key, ok := keys[flat]; ok {
		return key.path
	}
	section, field, found := strings.Cut(flat, "_")
	if !found {
		return flat
	}
	return section + "." + field
}

// envValue maps one environment variable to its key and value. Values of
// list keys are split on commas, with blanks dropped.
func envValue(name, value string, keys map[string]leafKey) (string, interface{}) {
	key := envKey(name, keys)
	if leaf, ok := keys[strings.ToLower(strings.TrimPrefix(name, EnvPrefix))]; !ok || !leaf.list {
		return key, value
	}
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// leafKeys indexes every koanf key reachable in t by its underscore form.
func leafKeys(t reflect.Type, prefix string) map[string]leafKey {
	keys := make(map[string]leafKey)
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("koanf")
		if name == "" || name == "-" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct && f.Type.PkgPath() != "time" {
			for flat, leaf := range leafKeys(f.Type, key) {
				keys[flat] = leaf
			}
			continue
		}
		keys[strings.ReplaceAll(key, ".", "_")] = leafKey{
			path: key,
			list: f.Type.Kind() == reflect.Slice && f.Type.Elem().Kind() == reflect.String,
		}
	}
	return keys
}

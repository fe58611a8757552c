package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pelletier/go-toml/v2"

	"github.com/wricardo/mcp-training/idleclicker/game/engine"
	"github.com/wricardo/mcp-training/idleclicker/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultCacheSize bounds the number of parsed economies kept in memory
const DefaultCacheSize = 32

// Supported file extensions, in lookup order
var extensions = []string{".json", ".toml"}

// Manager handles economy configuration loading and caching
type Manager struct {
	configDir     string
	defaultName   string
	defaultConfig *engine.EconomyConfig
	cache         *lru.Cache
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager. The default economy is
// "default" when such a file exists, otherwise the first valid file,
// otherwise the built-in economy.
func NewManager(configDir string) (*Manager, error) {
	return NewManagerWithDefault(configDir, "default")
}

// NewManagerWithDefault creates a manager whose default economy is defaultName
func NewManagerWithDefault(configDir, defaultName string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	cache, err := lru.New(DefaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create config cache: %w", err)
	}

	m := &Manager{
		configDir:   configDir,
		defaultName: defaultName,
		cache:       cache,
	}
	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}
	return m, nil
}

// LoadConfig loads an economy by name. Values absent from the file keep
// their built-in defaults.
func (m *Manager) LoadConfig(name string) (*engine.EconomyConfig, error) {
	name = configID(name)
	if cached, ok := m.cache.Get(name); ok {
		return cached.(*engine.EconomyConfig), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if cached, ok := m.cache.Get(name); ok {
		return cached.(*engine.EconomyConfig), nil
	}

	path, format, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	config, err := decodeFile(path, format)
	if err != nil {
		return nil, err
	}

	m.cache.Add(name, config)
	return config, nil
}

// ListConfigs returns information about all available configurations
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := make(map[string]bool)
	var configs []*service.ConfigInfo
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || !supported(ext) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ext)
		if seen[id] {
			continue
		}

		config, err := m.LoadConfig(id)
		if err != nil {
			// Skip invalid configs
			continue
		}
		seen[id] = true
		configs = append(configs, Describe(id, entry.Name(), config))
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// Describe summarizes an economy for listings
func Describe(id, filename string, config *engine.EconomyConfig) *service.ConfigInfo {
	info := &service.ConfigInfo{
		Filename:     filename,
		ConfigID:     id,
		Name:         config.Name,
		Description:  config.Description,
		Format:       strings.TrimPrefix(filepath.Ext(filename), "."),
		Tiers:        len(config.Tiers),
		Boosts:       len(config.Boosts),
		AscensionAt:  config.AscensionThreshold(),
		TickInterval: config.TickInterval.Std().String(),
	}
	if n := len(config.Tiers); n > 0 {
		info.TopTier = config.Tiers[n-1].Name
	}
	return info
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.EconomyConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultName = configID(name)
	m.defaultConfig = config
	return nil
}

// RefreshCache drops all cached configurations and reloads the default
func (m *Manager) RefreshCache() error {
	m.cache.Purge()
	return m.loadDefaultConfig()
}

// CacheLen reports how many economies are currently cached
func (m *Manager) CacheLen() int {
	return m.cache.Len()
}

// loadDefaultConfig resolves the default economy
func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig(m.defaultName)
	if err != nil {
		if !errors.Is(err, ErrConfigNotFound) {
			return err
		}
		// Try the first available config
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			config = engine.DefaultEconomyConfig()
		} else if config, err = m.LoadConfig(configs[0].ConfigID); err != nil {
			config = engine.DefaultEconomyConfig()
		}
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

// SaveConfig validates config and writes it as <name>.json, or as TOML when
// name ends in .toml
func (m *Manager) SaveConfig(name string, config *engine.EconomyConfig) error {
	if err := engine.ValidateEconomyConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	format := ".json"
	if strings.HasSuffix(name, ".toml") {
		format = ".toml"
	}
	id := configID(name)

	var data []byte
	var err error
	if format == ".toml" {
		data, err = toml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, id+format), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.cache.Add(id, config)
	return nil
}

// resolve finds the file backing name
func (m *Manager) resolve(name string) (string, string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", "", ErrConfigNotFound
	}
	for _, ext := range extensions {
		path := filepath.Join(m.configDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, ext, nil
		} else if !os.IsNotExist(err) {
			return "", "", fmt.Errorf("failed to stat config file: %w", err)
		}
	}
	return "", "", ErrConfigNotFound
}

// LoadFile decodes and validates a single economy file outside any manager
func LoadFile(path string) (*engine.EconomyConfig, error) {
	ext := filepath.Ext(path)
	if !supported(ext) {
		return nil, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, ext)
	}
	return decodeFile(path, ext)
}

func decodeFile(path, format string) (*engine.EconomyConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	defer file.Close()

	config := engine.DefaultEconomyConfig()
	switch format {
	case ".toml":
		err = toml.NewDecoder(file).Decode(config)
	default:
		err = json.NewDecoder(file).Decode(config)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, filepath.Base(path), err)
	}

	if err := engine.ValidateEconomyConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return config, nil
}

func configID(name string) string {
	name = strings.TrimSpace(name)
	for _, ext := range extensions {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

func supported(ext string) bool {
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}

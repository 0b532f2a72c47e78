package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrCatalogNotFound = errors.New("catalog not found")

// Manager loads and caches catalogs from a config directory.
type Manager struct {
	configDir string
	configs   map[string]*Config
	mu        sync.RWMutex
}

// NewManager creates a manager over configDir. The directory must
// exist.
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}
	return &Manager{
		configDir: configDir,
		configs:   make(map[string]*Config),
	}, nil
}

// Load returns the catalog stored as <name>.json under the config
// directory, validating and caching it on first use.
func (m *Manager) Load(name string) (*Config, error) {
	m.mu.RLock()
	if config, ok := m.configs[name]; ok {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock.
	if config, ok := m.configs[name]; ok {
		return config, nil
	}

	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}

	data, err := os.ReadFile(filepath.Join(m.configDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCatalogNotFound
		}
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := Validate(&config); err != nil {
		return nil, err
	}

	m.configs[name] = &config
	return &config, nil
}

// List returns the names of the catalogs available in the config
// directory.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("read config directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return names, nil
}

package file

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
	"github.com/custodia-labs/brokerdesk/internal/logger"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// EnvHome overrides the configuration directory.
const EnvHome = "BROKERDESK_HOME"

type envKind int

const (
	envString envKind = iota
	envInt
)

type envBinding struct {
	key  string
	kind envKind
}

// envOverrides maps environment variables onto configuration keys.
// Later entries win when two variables target the same key.
var envOverrides = []struct {
	name    string
	binding envBinding
}{
	{"OPENAI_API_KEY", envBinding{"openai.api_key", envString}},
	{"ANTHROPIC_API_KEY", envBinding{"anthropic.api_key", envString}},
	{"LIBRARY_DIR", envBinding{"library.dir", envString}},
	{"BROKERDESK_LIBRARY_DIR", envBinding{"library.dir", envString}},
	{"BROKERDESK_DATA_DIR", envBinding{"data.dir", envString}},
	{"EMBEDDING_MODEL", envBinding{"embedding.model", envString}},
	{"CHAT_MODEL", envBinding{"llm.model", envString}},
	{"CHUNK_CHARS", envBinding{"chunking.long_chars", envInt}},
	{"CHUNK_OVERLAP", envBinding{"chunking.long_overlap", envInt}},
	{"SHORT_CHUNK_CHARS", envBinding{"chunking.short_chars", envInt}},
	{"SHORT_CHUNK_OVERLAP", envBinding{"chunking.short_overlap", envInt}},
	{"LONG_DOC_PAGE_THRESHOLD", envBinding{"chunking.long_doc_page_threshold", envInt}},
	{"CHUNKING_VERSION", envBinding{"chunking.version", envInt}},
	{"EMBEDDING_BATCH_SIZE", envBinding{"embedding.batch_size", envInt}},
	{"TOP_K", envBinding{"retrieval.top_k", envInt}},
	{"MAX_CONTEXT_CHARS", envBinding{"retrieval.max_context_chars", envInt}},
}

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
// Environment overrides shadow file values on read and are never written back.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
	env      map[string]any
	lookup   func(string) (string, bool)
}

// DefaultDir returns $BROKERDESK_HOME, or ~/.brokerdesk.
func DefaultDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".brokerdesk"), nil
}

// LoadDotEnv loads .env files into the process environment.
// Variables already set are kept. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		logger.Debug("loaded environment from %s", p)
	}
	return nil
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, DefaultDir is used.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	return newConfigStore(configDir, os.LookupEnv)
}

func newConfigStore(configDir string, lookup func(string) (string, bool)) (*ConfigStore, error) {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
		data:     make(map[string]any),
		env:      make(map[string]any),
		lookup:   lookup,
	}

	// Load existing data if file exists
	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if val, ok := s.env[key]; ok {
		return val, true
	}
	val, ok := s.data[key]
	return val, ok
}

// Overridden reports whether key is currently shadowed by an environment variable.
func (s *ConfigStore) Overridden(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.env[key]
	return ok
}

// Keys returns every known key, file and environment, sorted.
func (s *ConfigStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.data)+len(s.env))
	for k := range s.data {
		seen[k] = struct{}{}
	}
	for k := range s.env {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}

	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	// TOML integers are parsed as int64
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// GetFloat retrieves a floating point configuration value.
func (s *ConfigStore) GetFloat(key string) float64 {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	val, ok := s.Get(key)
	if !ok {
		return false
	}

	b, ok := val.(bool)
	if !ok {
		return false
	}
	return b
}

// GetStringSlice retrieves a string slice configuration value.
func (s *ConfigStore) GetStringSlice(key string) []string {
	val, ok := s.Get(key)
	if !ok {
		return nil
	}

	// TOML arrays are parsed as []any
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}

// Set stores a configuration value and persists immediately.
// An environment override for the same key still wins on read.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes configuration to the TOML file (caller must hold lock).
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(s.data)
	if err != nil {
		return err
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads configuration from the TOML file and re-reads the environment.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.env = readEnv(s.lookup)

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file yet - that's fine, start empty
			s.data = make(map[string]any)
			return nil
		}
		return err
	}

	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}

	if loaded == nil {
		loaded = make(map[string]any)
	}

	// Flatten nested maps into dot-notation keys for easier access
	s.data = flattenMap(loaded, "")
	return nil
}

// readEnv collects overrides. Unparseable integers are ignored with a warning.
func readEnv(lookup func(string) (string, bool)) map[string]any {
	env := make(map[string]any)
	if lookup == nil {
		return env
	}
	for _, o := range envOverrides {
		raw, ok := lookup(o.name)
		if !ok || raw == "" {
			continue
		}
		switch o.binding.kind {
		case envInt:
			n, err := strconv.Atoi(raw)
			if err != nil {
				logger.Warn("ignoring %s=%q: not an integer", o.name, raw)
				continue
			}
			env[o.binding.key] = n
		default:
			env[o.binding.key] = raw
		}
	}
	return env
}

// FlattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			// Recursively flatten nested maps
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

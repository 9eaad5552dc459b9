package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envFrom(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func newTestStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := newConfigStore(t.TempDir(), noEnv)
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_HomeFromEnv(t *testing.T) {
	home := filepath.Join(t.TempDir(), "bd")
	t.Setenv(EnvHome, home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.toml"), store.Path())

	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, home, dir)
}

func TestDefaultDir_FallsBackToHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}
	t.Setenv(EnvHome, "")

	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".brokerdesk"), dir)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("s", "hello"))
	require.NoError(t, store.Set("i", 42))
	require.NoError(t, store.Set("b", true))
	require.NoError(t, store.Set("f", 2.5))
	require.NoError(t, store.Set("list", []string{"a", "b"}))

	assert.Equal(t, "hello", store.GetString("s"))
	assert.Equal(t, 42, store.GetInt("i"))
	assert.True(t, store.GetBool("b"))
	assert.Equal(t, 2.5, store.GetFloat("f"))
	assert.Equal(t, 42.0, store.GetFloat("i"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("list"))

	// Wrong types and missing keys read as zero values.
	assert.Equal(t, "", store.GetString("i"))
	assert.Equal(t, 0, store.GetInt("s"))
	assert.False(t, store.GetBool("s"))
	assert.Equal(t, 0.0, store.GetFloat("s"))
	assert.Nil(t, store.GetStringSlice("missing"))
	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()

	store1, err := newConfigStore(tmpDir, noEnv)
	require.NoError(t, err)
	require.NoError(t, store1.Set("embedding.provider", "ollama"))
	require.NoError(t, store1.Set("retrieval.top_k", 8))
	require.NoError(t, store1.Set("http.requests_per_second", 2.5))
	require.NoError(t, store1.Set("flag", true))

	store2, err := newConfigStore(tmpDir, noEnv)
	require.NoError(t, err)

	assert.Equal(t, "ollama", store2.GetString("embedding.provider"))
	assert.Equal(t, 8, store2.GetInt("retrieval.top_k"))
	assert.Equal(t, 2.5, store2.GetFloat("http.requests_per_second"))
	assert.True(t, store2.GetBool("flag"))
}

func TestConfigStore_NestedTOMLIsFlattened(t *testing.T) {
	tmpDir := t.TempDir()
	content := "[chunking]\nlong_chars = 3000\n\n[library]\ndir = \"/srv/policies\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := newConfigStore(tmpDir, noEnv)
	require.NoError(t, err)

	assert.Equal(t, 3000, store.GetInt("chunking.long_chars"))
	assert.Equal(t, "/srv/policies", store.GetString("library.dir"))
	assert.Equal(t, []string{"chunking.long_chars", "library.dir"}, store.Keys())
}

func TestConfigStore_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := newConfigStore(tmpDir, envFrom(map[string]string{
		"CHUNK_CHARS":            "1800",
		"TOP_K":                  "nope",
		"CHAT_MODEL":             "gpt-4o-mini",
		"OPENAI_API_KEY":         "sk-test",
		"LIBRARY_DIR":            "/a",
		"BROKERDESK_LIBRARY_DIR": "/b",
	}))
	require.NoError(t, err)

	require.NoError(t, store.Set("chunking.long_chars", 2500))
	require.NoError(t, store.Set("retrieval.top_k", 4))

	assert.Equal(t, 1800, store.GetInt("chunking.long_chars"))
	assert.True(t, store.Overridden("chunking.long_chars"))
	assert.Equal(t, 4, store.GetInt("retrieval.top_k"), "unparseable override is ignored")
	assert.False(t, store.Overridden("retrieval.top_k"))
	assert.Equal(t, "gpt-4o-mini", store.GetString("llm.model"))
	assert.Equal(t, "sk-test", store.GetString("openai.api_key"))
	assert.Equal(t, "/b", store.GetString("library.dir"))

	// Overrides are never written to disk.
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-test")
	assert.NotContains(t, string(data), "1800")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("BROKERDESK_TEST_DOTENV=from-file\n"), 0600))
	t.Setenv("BROKERDESK_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("BROKERDESK_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("BROKERDESK_TEST_DOTENV"))

	// Existing variables are kept.
	t.Setenv("BROKERDESK_TEST_DOTENV", "from-shell")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-shell", os.Getenv("BROKERDESK_TEST_DOTENV"))
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("# just a comment\n"), 0600))

	store, err := newConfigStore(tmpDir, noEnv)
	require.NoError(t, err)

	val, ok := store.Get("any_key")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("test", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestStore(t)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			key := "key" + string(rune('0'+id))
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_, _ = store.Get(key)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600))

	store, err := newConfigStore(tmpDir, noEnv)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("test", "value"))

	// Replace the file with a directory to cause write error
	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_SetWithUnmarshallableValue(t *testing.T) {
	store := newTestStore(t)

	// Channels cannot be marshaled to TOML
	assert.Error(t, store.Set("channel", make(chan int)))
}

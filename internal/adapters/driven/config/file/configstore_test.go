package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_Path(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("settings.developer_email", "dev@example.com"))
	require.NoError(t, store.Set("settings.port", 8080))
	require.NoError(t, store.Set("environment.production", true))
	require.NoError(t, store.Set("settings.report_emails", []string{"a@example.com", "b@example.com"}))

	assert.Equal(t, "dev@example.com", store.GetString("settings.developer_email"))
	assert.Equal(t, 8080, store.GetInt("settings.port"))
	assert.True(t, store.GetBool("environment.production"))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, store.GetStringSlice("settings.report_emails"))

	// Wrong types and missing keys fall back to zero values
	assert.Empty(t, store.GetString("settings.port"))
	assert.Zero(t, store.GetInt("settings.developer_email"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
	assert.Equal(t, []string{"dev@example.com"}, store.GetStringSlice("settings.developer_email"))
}

func TestConfigStore_NestedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("schedules.shopping-daily.report", "shopping"))
	require.NoError(t, store.Set("schedules.shopping-daily.interval", "24h"))
	require.NoError(t, store.Set("schedules.shopping-daily.customers", []string{"123:Acme"}))
	require.NoError(t, store.Set("settings.slack_channel", "#reports"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[schedules.shopping-daily]")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "shopping", reloaded.GetString("schedules.shopping-daily.report"))
	assert.Equal(t, "24h", reloaded.GetString("schedules.shopping-daily.interval"))
	assert.Equal(t, []string{"123:Acme"}, reloaded.GetStringSlice("schedules.shopping-daily.customers"))
	assert.Equal(t, "#reports", reloaded.GetString("settings.slack_channel"))
}

func TestConfigStore_Keys(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("schedules.b.report", "facebook"))
	require.NoError(t, store.Set("schedules.a.report", "shopping"))
	require.NoError(t, store.Set("settings.slack_channel", "#reports"))

	assert.Equal(t, []string{"schedules.a.report", "schedules.b.report"}, store.Keys("schedules."))
	assert.Len(t, store.Keys(""), 3)
	assert.Empty(t, store.Keys("missing."))
}

func TestNestMap_ValueAndTableConflict(t *testing.T) {
	nested := nestMap(map[string]any{
		"a":   1,
		"a.b": 2,
		"c.d": 3,
	})

	assert.Equal(t, 1, nested["a"])
	assert.Equal(t, 2, nested["a.b"])
	assert.Equal(t, map[string]any{"d": 3}, nested["c"])
}

func TestConfigStore_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), nil, 0600))

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	_, ok := store.Get("any")
	assert.False(t, ok)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("settings.warehouse_dsn", "user:pass@tcp(db)/reports"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Save_Explicit(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	store.mu.Lock()
	store.data["manual_key"] = "manual_value"
	store.mu.Unlock()
	require.NoError(t, store.Save())

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "manual_value", reloaded.GetString("manual_key"))
}

func TestNewConfigStore_Errors(t *testing.T) {
	_, err := NewConfigStore("/dev/null/cannot/create")
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not toml {{[["), 0600))
	_, err = NewConfigStore(dir)
	assert.Error(t, err)
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set("test", "value"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "schedules.task" + string(rune('0'+id)) + ".enabled"
			_ = store.Set(key, true)
			_ = store.GetBool(key)
			_ = store.Keys("schedules.")
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys("schedules."), 10)
}

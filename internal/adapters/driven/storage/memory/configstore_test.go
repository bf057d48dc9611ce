package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("settings.slack_channel", "#reports"))
	require.NoError(t, store.Set("scheduler.enabled", true))
	require.NoError(t, store.Set("settings.retries", int64(3)))
	require.NoError(t, store.Set("settings.ratio", 2.0))
	require.NoError(t, store.Set("settings.report_emails", []any{"a@example.com", 7, "b@example.com"}))

	assert.Equal(t, "#reports", store.GetString("settings.slack_channel"))
	assert.True(t, store.GetBool("scheduler.enabled"))
	assert.Equal(t, 3, store.GetInt("settings.retries"))
	assert.Equal(t, 2, store.GetInt("settings.ratio"))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, store.GetStringSlice("settings.report_emails"))
	assert.Equal(t, []string{"#reports"}, store.GetStringSlice("settings.slack_channel"))

	assert.Empty(t, store.GetString("scheduler.enabled"))
	assert.False(t, store.GetBool("settings.slack_channel"))
	assert.Zero(t, store.GetInt("missing"))
	assert.Nil(t, store.GetStringSlice("scheduler.enabled"))
}

func TestConfigStore_Keys(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("schedules.weekly.report", "facebook"))
	require.NoError(t, store.Set("schedules.daily.report", "shopping"))
	require.NoError(t, store.Set("settings.slack_channel", "#reports"))

	assert.Equal(t, []string{"schedules.daily.report", "schedules.weekly.report"}, store.Keys("schedules."))
	assert.Nil(t, store.Keys("pipeline."))
}

func TestConfigStore_NoPersistence(t *testing.T) {
	store := NewConfigStore()

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("k"+string(rune('a'+n)), n)
			_ = store.GetInt("k" + string(rune('a'+n)))
			_ = store.Keys("k")
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys("k"), 20)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_POOL_SIZE", "")
	t.Setenv("DB_MAX_OVERFLOW", "")
	t.Setenv("GENERATION_TIMEOUT", "")

	cfg := Load()
	assert.Equal(t, 5, cfg.DBPoolSize)
	assert.Equal(t, 15, cfg.MaxOpenConns())
	assert.Equal(t, 60*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_POOL_SIZE", "2")
	t.Setenv("DB_MAX_OVERFLOW", "3")
	t.Setenv("DB_POOL_TIMEOUT", "750ms")
	t.Setenv("CONTEXT_TOP_K", "not-a-number")

	cfg := Load()
	assert.Equal(t, 5, cfg.MaxOpenConns())
	assert.Equal(t, 750*time.Millisecond, cfg.DBPoolTimeout)
	assert.Equal(t, 3, cfg.ContextTopK)
}

func TestTopicNames(t *testing.T) {
	cfg := &Config{GoogleProjectID: "proj", GooglePubSubTopic: "gmail-updates"}
	assert.Equal(t, "gmail-updates", cfg.TopicID())
	assert.Equal(t, "projects/proj/topics/gmail-updates", cfg.WatchTopic())

	cfg.GooglePubSubTopic = "projects/other/topics/inbox"
	assert.Equal(t, "inbox", cfg.TopicID())
	assert.Equal(t, "projects/other/topics/inbox", cfg.WatchTopic())

	cfg.GooglePubSubTopic = ""
	assert.Empty(t, cfg.WatchTopic())
}

package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogrusLogger_WritesFieldsAndModule(t *testing.T) {
	var buf bytes.Buffer
	log := NewTextLogrusLogger(&buf, "debug").With("module", "library")

	log.Debug(context.Background(), "probing audio", "track_id", "t1")
	log.Error(context.Background(), "cleanup failed", "key", "audio/x.mp3")

	out := buf.String()
	assert.Contains(t, out, "[DEBU]")
	assert.Contains(t, out, "[ERRO]")
	assert.Contains(t, out, "[module:library]")
	assert.Contains(t, out, "[track_id:t1]")
	assert.Contains(t, out, "probing audio")
	assert.Contains(t, out, "[key:audio/x.mp3]")
}

func TestLogrusLogger_LevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log := NewTextLogrusLogger(&buf, "not-a-level")

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestFields_OddArgs(t *testing.T) {
	f := fields([]any{"a", 1, "dangling"})
	assert.Equal(t, 1, f["a"])
	assert.Equal(t, "dangling", f["!BADKEY"])
}

package logs

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Run("LevelFiltering", func(t *testing.T) {
		logger := NewLogger(10, INFO)
		logger.Debug("should not be logged")
		logger.Info("should be logged")
		logger.Warn("should be logged")
		logger.Error("should be logged")

		entries := logger.GetLast(10)
		assert.Len(t, entries, 3, "Logger should have ignored DEBUG but kept INFO, WARN, and ERROR")
		assert.Equal(t, INFO, entries[0].Level)
		assert.Equal(t, WARN, entries[1].Level)
		assert.Equal(t, ERROR, entries[2].Level)
	})

	t.Run("RingBufferBehavior", func(t *testing.T) {
		logger := NewLogger(2, DEBUG)

		logger.Info("first")
		logger.Info("second")
		logger.Info("third")

		entries := logger.GetLast(10)
		assert.Len(t, entries, 2, "Logger should only keep maxSize entries")
		assert.Equal(t, "second", entries[0].Message)
		assert.Equal(t, "third", entries[1].Message)
	})

	t.Run("ConcurrentLogging", func(t *testing.T) {
		logger := NewLogger(100, DEBUG)
		var wg sync.WaitGroup
		numLogs := 50

		for i := 0; i < numLogs; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				logger.Info("node poll", "attempt", i)
			}(i)
		}
		wg.Wait()

		assert.Len(t, logger.GetLast(100), numLogs, "Logger should have all concurrent log entries")
	})

	t.Run("GetLastBoundaries", func(t *testing.T) {
		logger := NewLogger(10, DEBUG)
		logger.Info("msg1")
		logger.Info("msg2")
		logger.Info("msg3")

		assert.Len(t, logger.GetLast(10), 3)
		assert.Len(t, logger.GetLast(3), 3)
		assert.Empty(t, logger.GetLast(0))
		assert.Empty(t, logger.GetLast(-1))

		lastTwo := logger.GetLast(2)
		require.Len(t, lastTwo, 2)
		assert.Equal(t, "msg2", lastTwo[0].Message)
		assert.Equal(t, "msg3", lastTwo[1].Message)
	})

	t.Run("CopyProtection", func(t *testing.T) {
		logger := NewLogger(10, DEBUG)
		logger.Info("original message", "job_id", 3)

		entries := logger.GetLast(1)
		entries[0].Message = "modified message"
		entries[0].Fields["job_id"] = 4

		after := logger.GetLast(1)
		assert.Equal(t, "original message", after[0].Message)
		assert.Equal(t, 3, after[0].Fields["job_id"])
	})
}

func TestLogger_Fields(t *testing.T) {
	logger := NewLogger(10, DEBUG)

	logger.Warn("upstream fetch failed", "path", "/jobs/3/", "error", errors.New("timeout"), "dangling")

	entries := logger.GetLast(1)
	require.Len(t, entries, 1)
	assert.Equal(t, map[string]any{
		"path":    "/jobs/3/",
		"error":   "timeout",
		"!BADKEY": "dangling",
	}, entries[0].Fields)
}

func TestLogger_Sink(t *testing.T) {
	var buf bytes.Buffer
	sink := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger := NewLogger(10, INFO).WithSink(sink)

	logger.Debug("filtered")
	logger.Info("job built", "job_id", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "job built", line["msg"])
	assert.Equal(t, "INFO", line["level"])
	assert.EqualValues(t, 3, line["job_id"])
}

func TestParseLevel(t *testing.T) {
	for raw, want := range map[string]Level{
		"debug":   DEBUG,
		" Info ":  INFO,
		"warning": WARN,
		"ERROR":   ERROR,
	} {
		t.Run(raw, func(t *testing.T) {
			got, err := ParseLevel(raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
	assert.Equal(t, slog.LevelWarn, WARN.SlogLevel())
}

package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/vizcrn/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	logger.Clear()
	assert.Len(t, logger.GetMessages(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
}

func TestMockLogger_DerivedLoggersShareRecord(t *testing.T) {
	root := testutil.NewMockLogger()
	child := root.Named("pipeline").With(logging.String("run_id", "r1")).Named("builder")

	child.Warn("skipping self-loop reaction", logging.Int64("node", 4))

	msgs := root.Filter("warn", "self-loop")
	require.Len(t, msgs, 1)
	assert.Equal(t, "pipeline.builder", msgs[0].Logger)
	v, ok := msgs[0].Field("run_id")
	assert.True(t, ok)
	assert.Equal(t, "r1", v)
	v, ok = msgs[0].Field("node")
	assert.True(t, ok)
	assert.Equal(t, int64(4), v)
	assert.Empty(t, root.Filter("", "absent"))
}

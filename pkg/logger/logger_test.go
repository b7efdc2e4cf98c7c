package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(WithOutput(&buf), WithJSONFormatter())

	log.Info("hello", Component("engine"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "engine", record["component"])
}

func TestNew_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(WithOutput(&buf), WithTextFormatter())

	log.Info("hello")

	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(WithOutput(&buf), WithLevel(slog.LevelWarn))

	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNew_StaticAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(WithOutput(&buf), WithAttr(slog.String("service", "overlay")))

	log.Info("hello")
	assert.Contains(t, buf.String(), `"service":"overlay"`)
}

func TestWithFormat_PanicsOnInvalid(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		New(WithFormat(Format("yaml")))
	})
}

func TestAttrHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, Error(nil))
	assert.Equal(t, "error", Error(errors.New("boom")).Key)
	assert.Equal(t, "notification_id", NotificationID("n-1").Key)
	assert.Equal(t, "toast_id", ToastID("t-1").Key)
	assert.Equal(t, "owner_id", OwnerID("o-1").Key)
	assert.Equal(t, "reason", Reason("timeout").Key)
	assert.Equal(t, "count", Count(3).Key)

	var buf bytes.Buffer
	log := New(WithOutput(&buf), WithTextFormatter())
	log.Info("x", Reason("close"), Count(2))
	out := buf.String()
	assert.True(t, strings.Contains(out, "reason=close") && strings.Contains(out, "count=2"))
}

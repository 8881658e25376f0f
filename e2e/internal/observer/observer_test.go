package observer

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testObserver() (*Observer, *time.Time) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	o := NewObserver("tcp://localhost:1883", "test-observer", logger)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return clock }
	o.startTime = clock
	return o, &clock
}

func TestRecord_DecodesJSON(t *testing.T) {
	o, clock := testObserver()

	o.record("automation/command/light/office", []byte(`{"brightness":90}`), false)
	*clock = clock.Add(time.Second)
	o.record("automation/status/circadian-agent", []byte("online"), true)

	messages := o.GetAllMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, map[string]interface{}{"brightness": 90.0}, messages[0].Payload)
	assert.Equal(t, "online", messages[1].Payload)
	assert.True(t, messages[1].Retained)

	since := o.GetMessagesSince(*clock)
	require.Len(t, since, 1)
	assert.Equal(t, "automation/status/circadian-agent", since[0].Topic)
	assert.Equal(t, 2, o.GetMessageCount())
}

func TestSaveCapture(t *testing.T) {
	o, _ := testObserver()
	o.record("automation/context/lighting/office", []byte(`{"state":"on"}`), true)

	path := filepath.Join(t.TempDir(), "captures", "run.json")
	require.NoError(t, o.SaveCapture(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var saved []CapturedMessage
	require.NoError(t, json.Unmarshal(data, &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, "automation/context/lighting/office", saved[0].Topic)
}

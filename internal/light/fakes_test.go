package light

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/saaga0h/circadian-platform/pkg/mqtt"
	"github.com/saaga0h/circadian-platform/pkg/redis"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type published struct {
	Topic    string
	Retained bool
	Payload  []byte
}

// fakeMQTT records publishes and lets tests deliver messages to subscribers
type fakeMQTT struct {
	mu        sync.Mutex
	published []published
	handlers  map[string]mqtt.MessageHandler
	connected bool
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeMQTT) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeMQTT) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeMQTT) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{Topic: topic, Retained: retained, Payload: payload})
	return nil
}

func (f *fakeMQTT) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeMQTT) deliver(subscription, topic string, payload []byte) {
	f.mu.Lock()
	h := f.handlers[subscription]
	f.mu.Unlock()
	h(&fakeMessage{topic: topic, payload: payload})
}

func (f *fakeMQTT) on(topic string) []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []published
	for _, p := range f.published {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeMQTT) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = nil
}

type fakeMessage struct {
	topic    string
	payload  []byte
	retained bool
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }
func (m *fakeMessage) Retained() bool  { return m.retained }
func (m *fakeMessage) Ack()            {}

// fakeRedis keeps hashes and lists in memory
type fakeRedis struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	lists  map[string][]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		hashes: make(map[string]map[string]string),
		lists:  make(map[string][]string),
	}
}

func (f *fakeRedis) HSet(_ context.Context, key, field string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hashes[key] == nil {
		f.hashes[key] = make(map[string]string)
	}
	f.hashes[key][field] = fmt.Sprint(value)
	return nil
}

func (f *fakeRedis) HGet(_ context.Context, key, field string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.hashes[key][field]
	if !ok {
		return "", redis.ErrNotFound
	}
	return v, nil
}

func (f *fakeRedis) HGetAll(_ context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string)
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRedis) ZAdd(context.Context, string, float64, interface{}) error       { return nil }
func (f *fakeRedis) ZRemRangeByScore(context.Context, string, string, string) error { return nil }
func (f *fakeRedis) ZCard(context.Context, string) (int64, error)                   { return 0, nil }
func (f *fakeRedis) Expire(context.Context, string, time.Duration) error            { return nil }

func (f *fakeRedis) ZRangeByScoreWithScores(context.Context, string, float64, float64) ([]redis.ZMember, error) {
	return nil, nil
}

func (f *fakeRedis) ZRevRangeByScoreWithScores(context.Context, string, float64, float64, int64, int64) ([]redis.ZMember, error) {
	return nil, nil
}

// Keys supports trailing-star patterns only
func (f *fakeRedis) Keys(_ context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range f.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeRedis) LPush(_ context.Context, key string, values ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		f.lists[key] = append([]string{fmt.Sprint(v)}, f.lists[key]...)
	}
	return nil
}

func (f *fakeRedis) LTrim(_ context.Context, key string, start, stop int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.lists[key]
	if int(stop) < len(l)-1 {
		f.lists[key] = l[start : stop+1]
	}
	return nil
}

func (f *fakeRedis) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.lists[key]
	end := int(stop) + 1
	if end > len(l) {
		end = len(l)
	}
	if int(start) >= end {
		return nil, nil
	}
	return append([]string(nil), l[start:end]...), nil
}

func (f *fakeRedis) Ping(context.Context) error { return nil }
func (f *fakeRedis) Close() error               { return nil }

// fakeRecorder collects history events
type fakeRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *fakeRecorder) Record(_ context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func decodeCommand(t *testing.T, p published) lightCommand {
	t.Helper()
	var cmd lightCommand
	require.NoError(t, json.Unmarshal(p.Payload, &cmd))
	return cmd
}

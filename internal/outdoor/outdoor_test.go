package outdoor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/saaga0h/circadian-platform/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeRedis implements redis.Client with sorted sets and hashes in memory
type fakeRedis struct {
	mu     sync.Mutex
	zsets  map[string][]redis.ZMember
	hashes map[string]map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		zsets:  make(map[string][]redis.ZMember),
		hashes: make(map[string]map[string]string),
	}
}

func (f *fakeRedis) zadd(key string, score float64, member string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zsets[key] = append(f.zsets[key], redis.ZMember{Score: score, Member: member})
	sort.Slice(f.zsets[key], func(i, j int) bool { return f.zsets[key][i].Score < f.zsets[key][j].Score })
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

func (f *fakeRedis) ZRangeByScoreWithScores(_ context.Context, key string, min, max float64) ([]redis.ZMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []redis.ZMember
	for _, m := range f.zsets[key] {
		if m.Score >= min && m.Score <= max {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRedis) ZRevRangeByScoreWithScores(ctx context.Context, key string, max, min float64, offset, count int64) ([]redis.ZMember, error) {
	asc, _ := f.ZRangeByScoreWithScores(ctx, key, min, max)
	var out []redis.ZMember
	for i := len(asc) - 1; i >= 0; i-- {
		out = append(out, asc[i])
	}
	if int(offset) >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if count > 0 && int(count) < len(out) {
		out = out[:count]
	}
	return out, nil
}

func (f *fakeRedis) ZAdd(context.Context, string, float64, interface{}) error       { return nil }
func (f *fakeRedis) ZRemRangeByScore(context.Context, string, string, string) error { return nil }
func (f *fakeRedis) ZCard(context.Context, string) (int64, error)                   { return 0, nil }
func (f *fakeRedis) Expire(context.Context, string, time.Duration) error            { return nil }
func (f *fakeRedis) Keys(context.Context, string) ([]string, error)                 { return nil, nil }
func (f *fakeRedis) LPush(context.Context, string, ...interface{}) error            { return nil }
func (f *fakeRedis) LTrim(context.Context, string, int64, int64) error              { return nil }
func (f *fakeRedis) LRange(context.Context, string, int64, int64) ([]string, error) { return nil, nil }
func (f *fakeRedis) Ping(context.Context) error                                     { return nil }
func (f *fakeRedis) Close() error                                                   { return nil }

func luxMember(t *testing.T, lux float64) string {
	data, err := json.Marshal(map[string]interface{}{"illuminance": lux, "source": "test"})
	require.NoError(t, err)
	return string(data)
}

func TestAngleNormalized(t *testing.T) {
	assert.Equal(t, 1.0, AngleNormalized(90))
	assert.Equal(t, 0.0, AngleNormalized(0))
	assert.Equal(t, 0.0, AngleNormalized(-12))
	assert.InDelta(t, 0.910, AngleNormalized(30), 0.001)
	// Very low sun gives less than dim daylight, which floors at zero
	assert.Equal(t, 0.0, AngleNormalized(0.1))
}

func TestWeatherNormalized(t *testing.T) {
	assert.Equal(t, 1.0, WeatherNormalized(0, 90))
	assert.InDelta(t, 0.703, WeatherNormalized(100, 90), 0.001)
	assert.Equal(t, WeatherNormalized(100, 90), WeatherNormalized(250, 90))
	assert.Less(t, WeatherNormalized(50, 30), AngleNormalized(30))
}

func TestSunFactor(t *testing.T) {
	assert.InDelta(t, 0.5, SunFactor(1000, 10000, 100), 1e-9)
	assert.Equal(t, 0.0, SunFactor(10, 10000, 100))
	assert.Equal(t, 1.0, SunFactor(50000, 10000, 100))

	// Unusable baselines
	assert.Equal(t, 1.0, SunFactor(1000, 100, 10000))
	assert.Equal(t, 1.0, SunFactor(1000, 100, 0))
}

func TestElevation(t *testing.T) {
	noon := time.Date(2025, 3, 20, 12, 7, 0, 0, time.UTC)
	assert.Greater(t, Elevation(noon, 0, 0), 85.0)

	midnight := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Less(t, Elevation(midnight, 60, 0), -40.0)
}

func TestConditionOverrides(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o := NewConditionOverrides()
	o.now = func() time.Time { return now }

	_, ok := o.Active()
	assert.False(t, ok)

	_, err := o.Set("foggy", time.Hour)
	assert.Error(t, err)
	_, err = o.Set(Cloudy, 0)
	assert.Error(t, err)

	expires, err := o.Set(Cloudy, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expires)

	active, ok := o.Active()
	require.True(t, ok)
	assert.Equal(t, Cloudy, active.Condition)

	now = now.Add(time.Hour)
	_, ok = o.Active()
	assert.False(t, ok, "override expires")
	assert.False(t, o.Clear())

	_, err = o.Set(Sunny, time.Minute)
	require.NoError(t, err)
	assert.True(t, o.Clear())

	assert.Equal(t, []string{"cloudy", "heavy_overcast", "partly_cloudy", "sunny"}, ConditionNames())
}

func TestTracker_EMA(t *testing.T) {
	tr := NewTracker(SourceLux, 300*time.Second, 0, 0, testLogger())
	start := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 100.0, tr.UpdateLux(100, start))
	assert.InDelta(t, 163.2, tr.UpdateLux(200, start.Add(300*time.Second)), 0.1)

	// Out-of-order readings do not move the average
	assert.InDelta(t, 163.2, tr.UpdateLux(10000, start), 0.1)

	raw := NewTracker(SourceLux, 0, 0, 0, testLogger())
	raw.UpdateLux(100, start)
	assert.Equal(t, 500.0, raw.UpdateLux(500, start.Add(time.Second)))
}

func TestTracker_Chain(t *testing.T) {
	noon := time.Date(2025, 3, 20, 12, 7, 0, 0, time.UTC)

	t.Run("angle only ignores other inputs", func(t *testing.T) {
		tr := NewTracker(SourceAngle, 0, 0, 0, testLogger())
		tr.UpdateWeather(100)
		tr.UpdateLux(10, noon)
		tr.SetBaselines(Baselines{Floor: 100, Ceiling: 10000})

		st := tr.Status(noon)
		assert.Equal(t, SourceAngle, st.Active)
		assert.Equal(t, 1.0, st.Normalized)
	})

	t.Run("weather before angle", func(t *testing.T) {
		tr := NewTracker(SourceWeather, 0, 0, 0, testLogger())
		assert.Equal(t, SourceAngle, tr.Status(noon).Active)

		tr.UpdateWeather(100)
		st := tr.Status(noon)
		assert.Equal(t, SourceWeather, st.Active)
		assert.InDelta(t, 0.70, st.Normalized, 0.01)
	})

	t.Run("lux needs baselines", func(t *testing.T) {
		tr := NewTracker(SourceLux, 0, 0, 0, testLogger())
		tr.UpdateLux(1000, noon)
		tr.UpdateWeather(100)
		assert.Equal(t, SourceWeather, tr.Status(noon).Active)

		tr.SetBaselines(Baselines{Floor: 100, Ceiling: 10000})
		st := tr.Status(noon)
		assert.Equal(t, SourceLux, st.Active)
		assert.InDelta(t, 0.5, st.Normalized, 1e-9)
		require.NotNil(t, st.SmoothLux)
		assert.Equal(t, 1000.0, *st.SmoothLux)
	})

	t.Run("override wins", func(t *testing.T) {
		tr := NewTracker(SourceLux, 0, 0, 0, testLogger())
		tr.UpdateLux(1000, noon)
		tr.SetBaselines(Baselines{Floor: 100, Ceiling: 10000})
		_, err := tr.Overrides().Set(HeavyOvercast, time.Hour)
		require.NoError(t, err)

		st := tr.Status(time.Now())
		assert.Equal(t, SourceOverride, st.Active)
		assert.Equal(t, "heavy_overcast", st.Override)
		assert.LessOrEqual(t, st.Normalized, 0.15)
	})
}

func TestParseSource(t *testing.T) {
	s, err := ParseSource("weather")
	require.NoError(t, err)
	assert.Equal(t, SourceWeather, s)

	_, err = ParseSource("override")
	assert.Error(t, err)
}

func TestStorage_Latest(t *testing.T) {
	fr := newFakeRedis()
	s := NewStorage(fr, "outdoor", testLogger())
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	key := redis.EnvironmentalSensorKey("outdoor")

	r, err := s.Latest(ctx, now, time.Hour)
	require.NoError(t, err)
	assert.Nil(t, r)

	fr.zadd(key, float64(now.Add(-2*time.Hour).UnixMilli()), luxMember(t, 50))
	fr.zadd(key, float64(now.Add(-10*time.Minute).UnixMilli()), luxMember(t, 800))
	fr.zadd(key, float64(now.Add(-5*time.Minute).UnixMilli()), `{"temperature": 21.5}`)
	fr.zadd(key, float64(now.Add(-4*time.Minute).UnixMilli()), `not json`)

	r, err = s.Latest(ctx, now, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 800.0, r.Lux)
	assert.Equal(t, "test", r.Source)
	assert.Equal(t, now.Add(-10*time.Minute).UnixMilli(), r.Timestamp.UnixMilli())

	all, err := s.Range(ctx, now.Add(-3*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 50.0, all[0].Lux)
}

func TestStorage_Baselines(t *testing.T) {
	fr := newFakeRedis()
	s := NewStorage(fr, "outdoor", testLogger())
	ctx := context.Background()

	_, ok, err := s.LoadBaselines(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveBaselines(ctx, Baselines{Floor: 120, Ceiling: 45000}))
	b, ok, err := s.LoadBaselines(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Baselines{Floor: 120, Ceiling: 45000}, b)
}

func TestLearnBaselines(t *testing.T) {
	day := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	var readings []Reading

	i := 0
	for d := 0; d < 5; d++ {
		for h := 10; h < 14; h++ {
			i++
			at := day.AddDate(0, 0, d).Add(time.Duration(h) * time.Hour)
			// Two readings per hour average to 1000*i
			readings = append(readings,
				Reading{Timestamp: at.Add(5 * time.Minute), Lux: float64(1000*i) - 100},
				Reading{Timestamp: at.Add(35 * time.Minute), Lux: float64(1000*i) + 100},
			)
		}
		// Night readings are ignored
		readings = append(readings, Reading{Timestamp: day.AddDate(0, 0, d), Lux: 1})
	}

	b, ok := LearnBaselines(readings, 0, 0)
	require.True(t, ok)
	assert.InDelta(t, 2000, b.Floor, 1e-9)
	assert.InDelta(t, 18000, b.Ceiling, 1e-9)

	_, ok = LearnBaselines(readings[:10], 0, 0)
	assert.False(t, ok, "too few daytime hours")
}

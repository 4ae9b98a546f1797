package connector

import (
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for Timeout.now
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newFakeTimeout(s *Session, d time.Duration) (*Timeout, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	t := NewTimeout(s, d)
	t.now = clock.Now
	t.lastReset = clock.Now()
	return t, clock
}

func TestTimeoutInvalidatesOnlyAfterElapsing(t *testing.T) {
	assert := require.New(t)
	b := newTestBackend()
	s := b.session()
	timeout, clock := newFakeTimeout(s, time.Second)

	conn, err := s.Connection(true)
	assert.NoError(err)

	clock.Advance(time.Second)
	assert.False(timeout.Check())
	assert.Same(conn, s.cached())

	clock.Advance(time.Nanosecond)
	assert.True(timeout.Check())
	assert.True(conn.Closed())
	assert.Nil(s.cached())

	// the timer was reset by the invalidation
	next, err := s.Connection(true)
	assert.NoError(err)
	clock.Advance(500 * time.Millisecond)
	assert.False(timeout.Check())
	assert.Same(next, s.cached())
}

func TestWrapInvalidatesBeforeCall(t *testing.T) {
	assert := require.New(t)
	b := newTestBackend()
	s := b.session()
	timeout, clock := newFakeTimeout(s, 10*time.Second)

	var sawCached []bool
	lookup := Wrap(timeout, func() (int, error) {
		sawCached = append(sawCached, s.cached() != nil)
		_, err := s.Connection(true)
		return len(sawCached), err
	})

	n, err := lookup()
	assert.NoError(err)
	assert.Equal(1, n)

	clock.Advance(5 * time.Second)
	_, err = lookup()
	assert.NoError(err)

	clock.Advance(6 * time.Second)
	_, err = lookup()
	assert.NoError(err)

	assert.Equal([]bool{false, true, false}, sawCached)
	assert.Equal(2, b.opens())
}

func TestTimeoutDo(t *testing.T) {
	assert := require.New(t)
	s := newTestBackend().session()
	timeout, clock := newFakeTimeout(s, time.Second)

	_, err := s.Connection(true)
	assert.NoError(err)

	clock.Advance(2 * time.Second)
	called := false
	assert.NoError(timeout.Do(func() error {
		called = true
		assert.Nil(s.cached())
		return nil
	}))
	assert.True(called)
}

// useFakeClock makes every Timeout created during the test run on the returned clock
func useFakeClock(t *testing.T) *fakeClock {
	fake := &fakeClock{now: time.Unix(1700000000, 0)}
	clock = fake.Now
	t.Cleanup(func() { clock = time.Now })
	return fake
}

func TestCachedConnectionTimeoutPerFunction(t *testing.T) {
	assert := require.New(t)
	fake := useFakeClock(t)
	b := newTestBackend()
	s := b.session()

	decorate := CachedConnectionTimeout[bool](s, 20*time.Millisecond)
	sawCached := func() (bool, error) {
		cached := s.cached() != nil
		_, err := s.Connection(true)
		return cached, err
	}
	f1 := decorate(sawCached)
	f2 := decorate(sawCached)

	_, err := s.Connection(true)
	assert.NoError(err)
	fake.Advance(40 * time.Millisecond)

	// both timers elapsed, so each function drops the connection once
	cached, err := f1()
	assert.NoError(err)
	assert.False(cached)
	cached, err = f2()
	assert.NoError(err)
	assert.False(cached)

	cached, err = f1()
	assert.NoError(err)
	assert.True(cached)
	assert.Equal(3, b.opens())

	// a function wrapped later starts counting when it is wrapped
	f3 := decorate(sawCached)
	fake.Advance(15 * time.Millisecond)
	cached, err = f3()
	assert.NoError(err)
	assert.True(cached)
}

func TestCachedConnectionDefaultTimeout(t *testing.T) {
	assert := require.New(t)
	b := newTestBackend()
	s := b.session()

	calls := 0
	fn := CachedConnection(s, func() (*Tree, error) {
		calls++
		return s.KeyedTree("items", true)
	})

	first, err := fn()
	assert.NoError(err)
	second, err := fn()
	assert.NoError(err)

	assert.Equal(2, calls)
	assert.Same(first, second)
	assert.Equal(1, b.opens())
	assert.Equal(DefaultTimeout, s.CacheTimeout())
}

func TestCachedConnectionConfiguredTimeout(t *testing.T) {
	assert := require.New(t)
	fake := useFakeClock(t)
	b := newTestBackend()

	config := DefaultConfig()
	config.CacheTimeoutSecond = 3
	s := NewSession(WithConfig(config), WithOpener(b.open))
	assert.Equal(3*time.Second, s.CacheTimeout())

	fn := CachedConnection(s, func() (bool, error) {
		cached := s.cached() != nil
		_, err := s.Connection(true)
		return cached, err
	})
	_, err := fn()
	assert.NoError(err)

	fake.Advance(2 * time.Second)
	cached, err := fn()
	assert.NoError(err)
	assert.True(cached)

	// past the configured 3s, still short of DefaultTimeout
	fake.Advance(2 * time.Second)
	cached, err = fn()
	assert.NoError(err)
	assert.False(cached)
	assert.Equal(2, b.opens())
}

func TestCacheTimeoutFallsBackToDefault(t *testing.T) {
	assert := require.New(t)
	config := DefaultConfig()
	config.Transport = "carrier-pigeon"

	s := NewSession(WithConfig(config), WithOpener(newTestBackend().open))
	assert.Equal(DefaultTimeout, s.CacheTimeout())
}

package connector

import (
	"errors"
	"fmt"
	"github.com/fsnotify/fsnotify"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/viper"
	"sync"
	"time"
)

var Logger = logger.GetLogger("connector")

// Session owns at most one cached connection and opens new ones on demand.
// It is safe for concurrent use, but a cached connection is shared by every
// caller of the session: don't use one session for independent units of work
// that must not see each other's objects.
type Session struct {
	opener     Opener
	loadConfig func() (Config, error)

	mu   sync.Mutex
	conn *Connection
}

// Option configures a Session
type Option func(*Session)

// WithOpener replaces the default backend (OpenRPCStore)
func WithOpener(opener Opener) Option {
	return func(s *Session) {
		s.opener = opener
	}
}

// WithConfig makes the session use config instead of loading a config file
func WithConfig(config Config) Option {
	return func(s *Session) {
		s.loadConfig = func() (Config, error) {
			return config, config.Validate()
		}
	}
}

// WithConfigFile makes the session load path (on top of the bundled default) for every new connection
func WithConfigFile(path string) Option {
	return func(s *Session) {
		s.loadConfig = func() (Config, error) {
			return LoadConfig(path)
		}
	}
}

// NewSession creates a session. Without options it locates and loads the
// config file each time it opens a connection and talks to a dKV server.
func NewSession(opts ...Option) *Session {
	s := &Session{
		opener: OpenRPCStore,
		loadConfig: func() (Config, error) {
			return LoadConfig("")
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Default is the process wide session used by callers that don't manage their own
var Default = NewSession()

// --------------------------------------------------------------------------
// Connection cache
// --------------------------------------------------------------------------

// Connection returns the cached connection after syncing it, if cached is true and one exists.
// Otherwise a new connection is opened; it is cached if cached is true.
// With cached false the cache is neither read nor written and the caller owns the connection.
func (s *Session) Connection(cached bool) (*Connection, error) {
	if cached {
		if conn := s.cached(); conn != nil {
			conn.Sync()
			return conn, nil
		}
	}

	conn, err := s.open()
	if err != nil {
		return nil, err
	}
	if !cached {
		return conn, nil
	}

	s.mu.Lock()
	existing := s.conn
	if existing == nil {
		s.conn = conn
	}
	s.mu.Unlock()

	// Another caller filled the slot while we were connecting
	if existing != nil {
		if err := conn.Close(); err != nil {
			Logger.Warningf("Failed to close surplus connection: %v", err)
		}
		existing.Sync()
		return existing, nil
	}
	return conn, nil
}

// Invalidate syncs and closes the cached connection and empties the cache.
// Calling it without a cached connection does nothing.
func (s *Session) Invalidate() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return
	}

	conn.Sync()
	if err := conn.Close(); err != nil {
		Logger.Warningf("Failed to close cached connection: %v", err)
	}
	connectionsInvalidated.Inc()
	Logger.Debugf("Invalidated cached connection")
}

// CacheTimeout returns the cache timeout of the session's config, or DefaultTimeout
// if the config can not be loaded
func (s *Session) CacheTimeout() time.Duration {
	config, err := s.loadConfig()
	if err != nil {
		Logger.Warningf("Failed to load config, using cache timeout of %s: %v", DefaultTimeout, err)
		return DefaultTimeout
	}
	return config.CacheTimeout()
}

// cached returns the cached connection or nil
func (s *Session) cached() *Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// forget empties the cache if it still holds conn. Registered as on-close callback.
func (s *Session) forget(conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == conn {
		s.conn = nil
	}
}

// open loads the config, builds the backend and opens a connection on it
func (s *Session) open() (*Connection, error) {
	start := time.Now()

	config, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	st, err := s.opener(config)
	if err != nil {
		return nil, err
	}

	conn := newConnection(st, config)
	conn.OnClose(s.forget)

	openTimer.UpdateSince(start)
	connectionsOpened.Inc()
	Logger.Debugf("Opened connection (transport %s, shard %d, project %q)", config.Transport, config.Shard, config.ProjectKey)
	return conn, nil
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Root returns the project root tree, creating it if the project key is absent.
// If the connection turns out to be in an invalid state and cached is true,
// the broken connection is dropped and the call is retried once without the cache.
func (s *Session) Root(cached bool) (*Tree, error) {
	conn, err := s.Connection(cached)
	if err != nil {
		return nil, err
	}

	root, err := conn.ProjectRoot()
	if err != nil && cached && errors.Is(err, ErrConnectionState) {
		Logger.Infof("Cached connection is unusable, retrying with a new one: %v", err)
		rootRetries.Inc()
		if err := conn.Close(); err != nil {
			Logger.Debugf("Closing broken connection: %v", err)
		}
		return s.Root(false)
	}
	return root, err
}

// KeyedTree returns the tree stored under key in the project root, see KeyedValue
func (s *Session) KeyedTree(key string, cached bool) (*Tree, error) {
	return KeyedValue(s, key, NewTree, cached)
}

// KeyedValue returns the container stored under key in the project root.
// If key is absent or holds an empty raw value, a container made by factory is stored first.
func KeyedValue[T Container](s *Session, key string, factory func() T, cached bool) (T, error) {
	var zero T

	root, err := s.Root(cached)
	if err != nil {
		return zero, err
	}

	value, err := root.setDefault(key, func() Container { return factory() })
	if err != nil {
		return zero, err
	}

	c, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %q holds %s", ErrKindMismatch, key, describe(value))
	}
	return c, nil
}

// --------------------------------------------------------------------------
// Config watching
// --------------------------------------------------------------------------

// WatchConfig invalidates the cached connection whenever the config file at
// path changes, so the next call reconnects with the new values.
// An empty path watches LocateConfig(). The watch lasts for the life of the process.
func (s *Session) WatchConfig(path string) error {
	if path == "" {
		path = LocateConfig()
	}
	if path == "" {
		return errors.New("no config file to watch")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		Logger.Infof("Config %s changed (%s), dropping cached connection", e.Name, e.Op)
		s.Invalidate()
	})
	v.WatchConfig()
	return nil
}

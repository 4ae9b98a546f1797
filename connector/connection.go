package connector

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dKV-connector/lib/store"
	"github.com/ValentinKolb/dKV-connector/rpc/transport"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"sync"
	"sync/atomic"
)

// ErrConnectionState is returned when a connection is used after it was closed,
// or when its transport was closed underneath it.
var ErrConnectionState = errors.New("connection is in an invalid state")

// rootOID is the object id of the database root tree
const rootOID = "root"

// projectOID returns the object id of the project root stored under key.
// It is derived from the key, so clients racing to create the project root agree on one record.
func projectOID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("dkvc:project:"+key)).String()
}

// Connection is an open handle to the database. It owns its store and an
// object cache, which keeps one Go value per object id.
//
// A container bound to one connection must not be stored through another one.
type Connection struct {
	store   store.IStore
	config  Config
	objects *xsync.MapOf[string, Container]
	closed  atomic.Bool

	mu      sync.Mutex
	onClose []func(*Connection)
}

// newConnection creates a connection that reads and writes its records through s
func newConnection(s store.IStore, config Config) *Connection {
	return &Connection{
		store:   s,
		config:  config,
		objects: xsync.NewMapOf[string, Container](),
	}
}

// Config returns the configuration the connection was opened with
func (c *Connection) Config() Config {
	return c.config
}

// Closed reports whether Close was called
func (c *Connection) Closed() bool {
	return c.closed.Load()
}

// Root returns the database root tree
func (c *Connection) Root() (*Tree, error) {
	if c.Closed() {
		return nil, ErrConnectionState
	}

	obj, err := c.object(rootOID, KindTree)
	if err != nil {
		return nil, err
	}
	root := obj.(*Tree)

	// Fail here and not on first use if the handle went stale
	root.mu.Lock()
	defer root.mu.Unlock()
	if err := ensureLoaded(root); err != nil {
		return nil, err
	}
	return root, nil
}

// ProjectRoot returns the tree stored under the configured project key of the
// database root, creating an empty one if the key is absent.
func (c *Connection) ProjectRoot() (*Tree, error) {
	root, err := c.Root()
	if err != nil {
		return nil, err
	}

	key := c.config.ProjectKey
	value, err := root.ensure(key, projectOID(key), KindTree)
	if err != nil {
		return nil, err
	}

	project, ok := value.(*Tree)
	if !ok {
		return nil, fmt.Errorf("%w: project key %q holds %s", ErrKindMismatch, key, describe(value))
	}
	return project, nil
}

// Sync drops the loaded state of every cached object, so changes made by
// other connections become visible on the next access.
func (c *Connection) Sync() {
	c.objects.Range(func(_ string, obj Container) bool {
		obj.base().invalidate()
		return true
	})
}

// OnClose registers fn to be called once the connection is closed.
// If the connection is already closed fn is called right away.
func (c *Connection) OnClose(fn func(*Connection)) {
	c.mu.Lock()
	if !c.Closed() {
		c.onClose = append(c.onClose, fn)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	fn(c)
}

// Close closes the store and runs the on-close callbacks. Only the first call has an effect.
func (c *Connection) Close() error {
	c.mu.Lock()
	if !c.closed.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return nil
	}
	callbacks := c.onClose
	c.onClose = nil
	c.mu.Unlock()

	err := c.store.Close()
	c.objects.Clear()

	for _, fn := range callbacks {
		fn(c)
	}
	return err
}

// --------------------------------------------------------------------------
// Object cache
// --------------------------------------------------------------------------

// object returns the cached handle for oid, creating an unloaded one if needed
func (c *Connection) object(oid string, kind Kind) (Container, error) {
	if _, err := newContainer(kind); err != nil {
		return nil, err
	}

	obj, _ := c.objects.LoadOrCompute(oid, func() Container {
		fresh, _ := newContainer(kind)
		p := fresh.base()
		p.conn, p.oid, p.loaded = c, oid, false
		return fresh
	})

	if obj.Kind() != kind {
		return nil, fmt.Errorf("%w: object %s is a %s, not a %s", ErrKindMismatch, oid, obj.Kind(), kind)
	}
	return obj, nil
}

// bind attaches a detached container (and the detached containers inside it)
// to the connection under a new object id and writes its record.
// If obj was bound by this call, undo detaches it and everything bound with it again.
// On error nothing stays bound.
func (c *Connection) bind(obj Container) (undo func(), err error) {
	p := obj.base()
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.conn {
	case c:
		return nil, nil
	case nil:
	default:
		return nil, ErrForeignContainer
	}
	if c.Closed() {
		return nil, ErrConnectionState
	}

	p.conn, p.oid = c, uuid.NewString()
	undoChildren, err := obj.bindChildren()
	if err != nil {
		p.conn, p.oid = nil, ""
		return nil, err
	}
	c.objects.Store(p.oid, obj)

	detach := func() {
		c.objects.Delete(p.oid)
		undoChildren()
		p.conn, p.oid, p.loaded = nil, "", true
	}
	if err := save(obj); err != nil {
		detach()
		return nil, err
	}

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		detach()
	}, nil
}

// --------------------------------------------------------------------------
// Record access
// --------------------------------------------------------------------------

// recordKey returns the store key of the record of oid
func (c *Connection) recordKey(oid string) string {
	return c.config.KeyPrefix + "/obj/" + oid
}

// stateError marks errors caused by a closed transport as connection state errors
func (c *Connection) stateError(err error) error {
	if err != nil && errors.Is(err, transport.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrConnectionState, err)
	}
	return err
}

func (c *Connection) readRecord(oid string) ([]byte, bool, error) {
	if c.Closed() {
		return nil, false, ErrConnectionState
	}
	data, found, err := c.store.Get(c.recordKey(oid))
	return data, found, c.stateError(err)
}

func (c *Connection) writeRecord(oid string, data []byte) error {
	if c.Closed() {
		return ErrConnectionState
	}
	return c.stateError(c.store.Set(c.recordKey(oid), data))
}

// createRecord writes data only if no record exists for oid yet
func (c *Connection) createRecord(oid string, data []byte) error {
	if c.Closed() {
		return ErrConnectionState
	}
	return c.stateError(c.store.SetEIfUnset(c.recordKey(oid), data, 0, 0))
}

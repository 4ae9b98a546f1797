package connector

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrKindMismatch is returned when a key holds a value of another kind than requested
	ErrKindMismatch = errors.New("value has a different kind")
	// ErrForeignContainer is returned when a container bound to one connection is stored through another one
	ErrForeignContainer = errors.New("container belongs to another connection")
	// ErrContainerCycle is returned when storing a container would make a tree contain itself
	ErrContainerCycle = errors.New("a tree can not contain itself")
)

// Kind identifies the type of a persistent container
type Kind string

const (
	KindTree Kind = "tree" // sorted mapping, see Tree
	KindSet  Kind = "set"  // sorted string set, see Set
)

// Container is a persistent value that can be stored under a Tree key.
//
// Containers created with NewTree or NewSet are detached: they live in memory
// until they are stored in a tree of a connection, which binds them to it and
// writes their record. From then on every change is written through.
type Container interface {
	// OID returns the object id of the container, empty while detached
	OID() string
	// Kind returns the kind of the container
	Kind() Kind
	// Len returns the number of entries
	Len() (int, error)
	// Connection returns the connection the container is bound to, nil while detached
	Connection() *Connection

	base() *persistent
	decode(data []byte) error
	encode() ([]byte, error)
	// bindChildren binds detached containers nested in this one. The returned
	// func reverts it, the receiver's mu must be held for both.
	bindChildren() (undo func(), err error)
}

// newContainer returns an empty detached container of the given kind
func newContainer(kind Kind) (Container, error) {
	switch kind {
	case KindTree:
		return NewTree(), nil
	case KindSet:
		return NewSet(), nil
	default:
		return nil, fmt.Errorf("unknown container kind %q", kind)
	}
}

// --------------------------------------------------------------------------
// Shared persistence state
// --------------------------------------------------------------------------

// persistent is embedded in every container. mu guards the container's content as well.
type persistent struct {
	mu     sync.Mutex
	conn   *Connection
	oid    string
	loaded bool
}

func (p *persistent) base() *persistent {
	return p
}

func (p *persistent) OID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.oid
}

func (p *persistent) Connection() *Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn
}

// invalidate makes the next access reload the record. Detached containers have nothing to reload.
func (p *persistent) invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.loaded = false
	}
}

// ensureLoaded reads the record of c if needed. c.base().mu must be held.
func ensureLoaded(c Container) error {
	p := c.base()
	if p.loaded || p.conn == nil {
		return nil
	}

	data, found, err := p.conn.readRecord(p.oid)
	if err != nil {
		return err
	}
	if !found {
		data = nil
	}
	if err := c.decode(data); err != nil {
		return fmt.Errorf("decoding %s %s: %w", c.Kind(), p.oid, err)
	}
	p.loaded = true
	return nil
}

// save writes the record of c. c.base().mu must be held.
// On failure the in-memory state is dropped, so the next access sees what the store has.
func save(c Container) error {
	p := c.base()
	if p.conn == nil {
		return nil
	}

	data, err := c.encode()
	if err == nil {
		err = p.conn.writeRecord(p.oid, data)
	}
	if err != nil {
		p.loaded = false
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Record encoding
// --------------------------------------------------------------------------

// treeRecord is the stored form of a Tree
type treeRecord struct {
	Entries []recordEntry
}

// recordEntry is one key of a treeRecord. Either Ref (with Kind) or Data is set.
type recordEntry struct {
	Key  string
	Kind Kind
	Ref  string
	Data []byte
}

// setRecord is the stored form of a Set
type setRecord struct {
	Members []string
}

func encodeRecord(record any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(record); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte, record any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(record)
}

package connector

import (
	"errors"
	"fmt"
	"github.com/google/btree"
)

// btreeDegree is the degree of the in-memory btrees backing Tree and Set
const btreeDegree = 16

// treeItem is one key of a Tree. It holds raw bytes, a reference to a bound
// container (ref) or, while the tree is detached, the detached child itself.
type treeItem struct {
	key   string
	data  []byte
	kind  Kind
	ref   string
	child Container
}

func lessTreeItem(a, b treeItem) bool {
	return a.key < b.key
}

// falsy reports whether the item holds nothing worth keeping (empty raw bytes)
func (i treeItem) falsy() bool {
	return i.child == nil && i.ref == "" && len(i.data) == 0
}

// Tree is a persistent sorted mapping from string keys to raw bytes or containers.
//
// Values returned by Get are either []byte or a Container (*Tree, *Set).
// Containers stored in a tree are returned as the same Go value for as long as
// the connection lives.
type Tree struct {
	persistent
	items *btree.BTreeG[treeItem]
}

// NewTree returns an empty detached tree
func NewTree() *Tree {
	return &Tree{
		persistent: persistent{loaded: true},
		items:      btree.NewG(btreeDegree, lessTreeItem),
	}
}

func (t *Tree) Kind() Kind {
	return KindTree
}

func (t *Tree) Len() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ensureLoaded(t); err != nil {
		return 0, err
	}
	return t.items.Len(), nil
}

// Has reports whether key is present
func (t *Tree) Has(key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ensureLoaded(t); err != nil {
		return false, err
	}
	return t.items.Has(treeItem{key: key}), nil
}

// Keys returns all keys in ascending order
func (t *Tree) Keys() ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ensureLoaded(t); err != nil {
		return nil, err
	}

	keys := make([]string, 0, t.items.Len())
	t.items.Ascend(func(item treeItem) bool {
		keys = append(keys, item.key)
		return true
	})
	return keys, nil
}

// Get returns the value stored under key: []byte or a Container
func (t *Tree) Get(key string) (value any, found bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ensureLoaded(t); err != nil {
		return nil, false, err
	}

	item, ok := t.items.Get(treeItem{key: key})
	if !ok {
		return nil, false, nil
	}
	value, err = t.resolve(item)
	return value, true, err
}

// Bytes returns the raw value stored under key
func (t *Tree) Bytes(key string) ([]byte, bool, error) {
	value, found, err := t.Get(key)
	if err != nil || !found {
		return nil, found, err
	}

	data, ok := value.([]byte)
	if !ok {
		return nil, true, fmt.Errorf("%w: key %q holds %s, not raw bytes", ErrKindMismatch, key, describe(value))
	}
	return data, true, nil
}

// Subtree returns the tree stored under key
func (t *Tree) Subtree(key string) (*Tree, bool, error) {
	value, found, err := t.Get(key)
	if err != nil || !found {
		return nil, found, err
	}

	sub, ok := value.(*Tree)
	if !ok {
		return nil, true, fmt.Errorf("%w: key %q holds %s, not a tree", ErrKindMismatch, key, describe(value))
	}
	return sub, true, nil
}

// Ascend calls fn for every key in ascending order until fn returns false
func (t *Tree) Ascend(fn func(key string, value any) bool) error {
	t.mu.Lock()
	if err := ensureLoaded(t); err != nil {
		t.mu.Unlock()
		return err
	}
	conn := t.conn
	items := make([]treeItem, 0, t.items.Len())
	t.items.Ascend(func(item treeItem) bool {
		items = append(items, item)
		return true
	})
	t.mu.Unlock()

	for _, item := range items {
		value, err := resolveIn(conn, item)
		if err != nil {
			return err
		}
		if !fn(item.key, value) {
			return nil
		}
	}
	return nil
}

// Set stores raw bytes under key, replacing whatever was there
func (t *Tree) Set(key string, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ensureLoaded(t); err != nil {
		return err
	}

	t.items.ReplaceOrInsert(treeItem{key: key, data: append([]byte(nil), value...)})
	return save(t)
}

// Put stores a container under key. A detached container is bound to the
// tree's connection (once the tree itself is bound).
func (t *Tree) Put(key string, c Container) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ensureLoaded(t); err != nil {
		return err
	}
	return t.put(key, c)
}

// Delete removes key and reports whether it was present.
// The record of a removed container stays in the store.
func (t *Tree) Delete(key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ensureLoaded(t); err != nil {
		return false, err
	}

	if _, ok := t.items.Delete(treeItem{key: key}); !ok {
		return false, nil
	}
	return true, save(t)
}

// --------------------------------------------------------------------------
// Internals
// --------------------------------------------------------------------------

// put inserts c under key. t.mu must be held and t loaded.
func (t *Tree) put(key string, c Container) error {
	if c == nil {
		return errors.New("can not store a nil container")
	}
	if c == Container(t) {
		return ErrContainerCycle
	}

	item := treeItem{key: key, kind: c.Kind()}
	if t.conn == nil {
		if other := c.Connection(); other != nil {
			return ErrForeignContainer
		}
		// a bound tree only holds references, so cycles can only form between detached trees
		if contains(c, t) {
			return ErrContainerCycle
		}
		item.child = c
	} else {
		if _, err := t.conn.bind(c); err != nil {
			return err
		}
		item.ref = c.OID()
	}

	t.items.ReplaceOrInsert(item)
	return save(t)
}

// setDefault returns the value under key. If key is absent or falsy, a
// container from factory is stored there first.
func (t *Tree) setDefault(key string, factory func() Container) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ensureLoaded(t); err != nil {
		return nil, err
	}

	if item, ok := t.items.Get(treeItem{key: key}); ok && !item.falsy() {
		return t.resolve(item)
	}

	c := factory()
	if err := t.put(key, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ensure returns the value under key. If key is absent or falsy, it is made to
// refer to the container with the given oid, whose record is created unless
// another client created it already.
func (t *Tree) ensure(key, oid string, kind Kind) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil, errors.New("ensure needs a bound tree")
	}
	if err := ensureLoaded(t); err != nil {
		return nil, err
	}

	if item, ok := t.items.Get(treeItem{key: key}); ok && !item.falsy() {
		return t.resolve(item)
	}

	empty, err := newContainer(kind)
	if err != nil {
		return nil, err
	}
	data, err := empty.encode()
	if err != nil {
		return nil, err
	}
	if err := t.conn.createRecord(oid, data); err != nil {
		return nil, err
	}

	t.items.ReplaceOrInsert(treeItem{key: key, kind: kind, ref: oid})
	if err := save(t); err != nil {
		return nil, err
	}
	return t.conn.object(oid, kind)
}

// resolve turns an item into the value handed out to callers. t.mu must be held.
func (t *Tree) resolve(item treeItem) (any, error) {
	return resolveIn(t.conn, item)
}

// resolveIn resolves item against conn, the connection of the tree holding it
func resolveIn(conn *Connection, item treeItem) (any, error) {
	switch {
	case item.child != nil:
		return item.child, nil
	case item.ref != "":
		if conn == nil {
			return nil, fmt.Errorf("detached tree holds a reference to %s", item.ref)
		}
		return conn.object(item.ref, item.kind)
	default:
		return item.data, nil
	}
}

// contains reports whether target is c or nested in the detached children of c
func contains(c, target Container) bool {
	if c == target {
		return true
	}
	tree, ok := c.(*Tree)
	if !ok {
		return false
	}

	tree.mu.Lock()
	var children []Container
	tree.items.Ascend(func(item treeItem) bool {
		if item.child != nil {
			children = append(children, item.child)
		}
		return true
	})
	tree.mu.Unlock()

	for _, child := range children {
		if contains(child, target) {
			return true
		}
	}
	return false
}

// bindChildren binds the detached children of a tree that is being bound. t.mu must be held.
// Items are rewritten to references only once every child is bound.
func (t *Tree) bindChildren() (func(), error) {
	var children []treeItem
	t.items.Ascend(func(item treeItem) bool {
		if item.child != nil {
			children = append(children, item)
		}
		return true
	})

	var undos []func()
	unbind := func() {
		for i := len(undos) - 1; i >= 0; i-- {
			undos[i]()
		}
	}
	for _, item := range children {
		undo, err := t.conn.bind(item.child)
		if err != nil {
			unbind()
			return nil, err
		}
		if undo != nil {
			undos = append(undos, undo)
		}
	}

	for _, item := range children {
		t.items.ReplaceOrInsert(treeItem{key: item.key, kind: item.kind, ref: item.child.OID()})
	}
	return func() {
		unbind()
		for _, item := range children {
			t.items.ReplaceOrInsert(item)
		}
	}, nil
}

func (t *Tree) encode() ([]byte, error) {
	record := treeRecord{Entries: make([]recordEntry, 0, t.items.Len())}
	t.items.Ascend(func(item treeItem) bool {
		record.Entries = append(record.Entries, recordEntry{
			Key:  item.key,
			Kind: item.kind,
			Ref:  item.ref,
			Data: item.data,
		})
		return true
	})
	return encodeRecord(record)
}

func (t *Tree) decode(data []byte) error {
	items := btree.NewG(btreeDegree, lessTreeItem)
	if len(data) > 0 {
		var record treeRecord
		if err := decodeRecord(data, &record); err != nil {
			return err
		}
		for _, entry := range record.Entries {
			items.ReplaceOrInsert(treeItem{
				key:  entry.Key,
				data: entry.Data,
				kind: entry.Kind,
				ref:  entry.Ref,
			})
		}
	}
	t.items = items
	return nil
}

// describe names the kind of a value for error messages
func describe(value any) string {
	switch v := value.(type) {
	case Container:
		return "a " + string(v.Kind())
	case []byte:
		return "raw bytes"
	default:
		return fmt.Sprintf("%T", value)
	}
}

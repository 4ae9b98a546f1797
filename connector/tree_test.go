package connector

import (
	"errors"
	"github.com/ValentinKolb/dKV-connector/lib/store"
	"github.com/stretchr/testify/require"
	"sync/atomic"
	"testing"
	"time"
)

func TestTreeRawValues(t *testing.T) {
	assert := require.New(t)
	s := newTestBackend().session()

	tree, err := s.KeyedTree("raw", true)
	assert.NoError(err)

	assert.NoError(tree.Set("b", []byte("2")))
	assert.NoError(tree.Set("a", []byte("1")))
	assert.NoError(tree.Set("c", []byte("3")))

	keys, err := tree.Keys()
	assert.NoError(err)
	assert.Equal([]string{"a", "b", "c"}, keys)

	n, err := tree.Len()
	assert.NoError(err)
	assert.Equal(3, n)

	value, found, err := tree.Bytes("b")
	assert.NoError(err)
	assert.True(found)
	assert.Equal([]byte("2"), value)

	_, found, err = tree.Bytes("missing")
	assert.NoError(err)
	assert.False(found)

	deleted, err := tree.Delete("b")
	assert.NoError(err)
	assert.True(deleted)
	deleted, err = tree.Delete("b")
	assert.NoError(err)
	assert.False(deleted)

	has, err := tree.Has("b")
	assert.NoError(err)
	assert.False(has)

	// the record holds what was written
	reread, err := newTestBackendFrom(s).KeyedTree("raw", false)
	assert.NoError(err)
	keys, err = reread.Keys()
	assert.NoError(err)
	assert.Equal([]string{"a", "c"}, keys)
	assert.NoError(reread.Connection().Close())
}

func TestTreeAscend(t *testing.T) {
	assert := require.New(t)
	s := newTestBackend().session()

	tree, err := s.KeyedTree("walk", true)
	assert.NoError(err)
	for _, k := range []string{"x", "y", "z"} {
		assert.NoError(tree.Set(k, []byte(k)))
	}
	assert.NoError(tree.Put("sub", NewTree()))

	var seen []string
	assert.NoError(tree.Ascend(func(key string, value any) bool {
		seen = append(seen, key+"="+describe(value))
		return key != "x"
	}))
	assert.Equal([]string{"sub=a tree", "x=raw bytes"}, seen)
}

func TestTreeNestedDetachedContainers(t *testing.T) {
	assert := require.New(t)
	b := newTestBackend()
	s := b.session()

	// build a detached structure first, then store it in one go
	outer := NewTree()
	inner := NewTree()
	members := NewSet()
	_, err := members.Add("alice")
	assert.NoError(err)
	assert.NoError(inner.Set("answer", []byte("42")))
	assert.NoError(inner.Put("members", members))
	assert.NoError(outer.Put("inner", inner))
	assert.Empty(outer.OID())
	assert.Nil(members.Connection())

	project, err := s.Root(true)
	assert.NoError(err)
	assert.NoError(project.Put("outer", outer))

	assert.NotEmpty(outer.OID())
	assert.NotEmpty(inner.OID())
	assert.NotEmpty(members.OID())
	assert.Same(project.Connection(), members.Connection())

	// read everything back through an unrelated session
	other, err := b.session().KeyedTree("outer", true)
	assert.NoError(err)
	assert.Equal(outer.OID(), other.OID())

	sub, found, err := other.Subtree("inner")
	assert.NoError(err)
	assert.True(found)
	value, _, err := sub.Bytes("answer")
	assert.NoError(err)
	assert.Equal([]byte("42"), value)

	got, found, err := sub.Get("members")
	assert.NoError(err)
	assert.True(found)
	set, ok := got.(*Set)
	assert.True(ok)
	has, err := set.Has("alice")
	assert.NoError(err)
	assert.True(has)

	_, _, err = sub.Subtree("answer")
	assert.ErrorIs(err, ErrKindMismatch)
	_, _, err = sub.Bytes("members")
	assert.ErrorIs(err, ErrKindMismatch)
}

func TestTreeForeignContainer(t *testing.T) {
	assert := require.New(t)
	b := newTestBackend()

	first, err := b.session().KeyedTree("first", true)
	assert.NoError(err)
	second, err := b.session().KeyedTree("second", true)
	assert.NoError(err)

	assert.ErrorIs(second.Put("stolen", first), ErrForeignContainer)
	assert.ErrorIs(NewTree().Put("stolen", first), ErrForeignContainer)

	// storing a container again on its own connection just adds a reference
	project, err := first.Connection().ProjectRoot()
	assert.NoError(err)
	assert.NoError(project.Put("alias", first))
	alias, _, err := project.Subtree("alias")
	assert.NoError(err)
	assert.Same(first, alias)
}

func TestTreeRejectsItself(t *testing.T) {
	tree := NewTree()
	require.ErrorIs(t, tree.Put("self", tree), ErrContainerCycle)
	require.Error(t, tree.Put("nil", nil))
}

func TestTreeRejectsDetachedCycle(t *testing.T) {
	assert := require.New(t)
	s := newTestBackend().session()

	a, b, c := NewTree(), NewTree(), NewTree()
	assert.NoError(a.Put("b", b))
	assert.NoError(b.Put("c", c))
	assert.ErrorIs(c.Put("a", a), ErrContainerCycle)
	assert.ErrorIs(b.Put("a", a), ErrContainerCycle)

	// the same child under two keys is no cycle
	assert.NoError(a.Put("c", c))

	project, err := s.Root(true)
	assert.NoError(err)

	done := make(chan error, 1)
	go func() { done <- project.Put("x", a) }()
	select {
	case err := <-done:
		assert.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("binding the detached trees did not return")
	}

	viaB, _, err := b.Subtree("c")
	assert.NoError(err)
	viaA, _, err := a.Subtree("c")
	assert.NoError(err)
	assert.Same(viaA, viaB)
	assert.NotEmpty(c.OID())

	keys, err := project.Keys()
	assert.NoError(err)
	assert.Contains(keys, "x")
}

// failingStore fails the write with number failAt, counting from one
type failingStore struct {
	store.IStore
	writes atomic.Int64
	failAt atomic.Int64
}

func (f *failingStore) Set(key string, value []byte) error {
	if n := f.writes.Add(1); n == f.failAt.Load() {
		return errors.New("disk full")
	}
	return f.IStore.Set(key, value)
}

func TestTreeBindFailureLeavesChildrenDetached(t *testing.T) {
	assert := require.New(t)
	b := newTestBackend()

	var failing *failingStore
	s := b.session(WithOpener(func(config Config) (store.IStore, error) {
		st, err := b.open(config)
		if err != nil {
			return nil, err
		}
		failing = &failingStore{IStore: st}
		return failing, nil
	}))

	project, err := s.Root(true)
	assert.NoError(err)

	outer, first, second := NewTree(), NewTree(), NewTree()
	firstTags, secondTags := NewSet(), NewSet()
	_, err = firstTags.Add("x")
	assert.NoError(err)
	assert.NoError(first.Put("tags", firstTags))
	assert.NoError(second.Put("tags", secondTags))
	assert.NoError(outer.Put("a", first))
	assert.NoError(outer.Put("b", second))

	// firstTags and first are written, then the record of secondTags fails
	failing.failAt.Store(failing.writes.Load() + 3)
	assert.Error(project.Put("outer", outer))

	for _, c := range []Container{outer, first, second, firstTags, secondTags} {
		assert.Empty(c.OID())
		assert.Nil(c.Connection())
	}
	has, err := project.Has("outer")
	assert.NoError(err)
	assert.False(has)

	// the detached structure is intact and can be stored again
	got, _, err := outer.Subtree("a")
	assert.NoError(err)
	assert.Same(first, got)
	tags, _, err := first.Get("tags")
	assert.NoError(err)
	assert.Same(firstTags, tags)
	members, err := firstTags.Members()
	assert.NoError(err)
	assert.Equal([]string{"x"}, members)

	assert.NoError(project.Put("outer", outer))
	assert.NotEmpty(secondTags.OID())
	assert.Same(project.Connection(), firstTags.Connection())

	reread, err := b.session().KeyedTree("outer", true)
	assert.NoError(err)
	sub, _, err := reread.Subtree("a")
	assert.NoError(err)
	value, _, err := sub.Get("tags")
	assert.NoError(err)
	has, err = value.(*Set).Has("x")
	assert.NoError(err)
	assert.True(has)
}

func TestContainersFailOnClosedConnection(t *testing.T) {
	assert := require.New(t)
	s := newTestBackend().session()

	tree, err := s.KeyedTree("closed", true)
	assert.NoError(err)
	tags, err := KeyedValue(s, "tags", NewSet, true)
	assert.NoError(err)

	s.Invalidate()

	_, err = tree.Keys()
	assert.ErrorIs(err, ErrConnectionState)
	assert.ErrorIs(tree.Set("k", []byte("v")), ErrConnectionState)
	_, err = tags.Add("x")
	assert.ErrorIs(err, ErrConnectionState)
}

func TestSetMembers(t *testing.T) {
	assert := require.New(t)
	s := newTestBackend().session()

	tags, err := KeyedValue(s, "tags", NewSet, true)
	assert.NoError(err)

	for _, m := range []string{"go", "db", "go", "cache"} {
		_, err := tags.Add(m)
		assert.NoError(err)
	}
	members, err := tags.Members()
	assert.NoError(err)
	assert.Equal([]string{"cache", "db", "go"}, members)

	removed, err := tags.Remove("db")
	assert.NoError(err)
	assert.True(removed)
	removed, err = tags.Remove("db")
	assert.NoError(err)
	assert.False(removed)

	n, err := tags.Len()
	assert.NoError(err)
	assert.Equal(2, n)

	reread, err := KeyedValue(newTestBackendFrom(s), "tags", NewSet, true)
	assert.NoError(err)
	members, err = reread.Members()
	assert.NoError(err)
	assert.Equal([]string{"cache", "go"}, members)
}

// newTestBackendFrom returns a new session on the database behind s
func newTestBackendFrom(s *Session) *Session {
	conn, err := s.Connection(true)
	if err != nil {
		panic(err)
	}
	return NewSession(WithConfig(conn.Config()), WithOpener(s.opener))
}

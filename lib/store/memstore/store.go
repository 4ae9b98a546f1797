package memstore

import (
	"github.com/ValentinKolb/dKV-connector/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
	"sync/atomic"
)

// entry stores a value with its ttl metadata (in write indices, 0 means never)
type entry struct {
	value    []byte
	expireAt uint64
	deleteAt uint64
}

// ttlInfo returns whether the entry is expired and whether it is deleted at the given write index
func (e entry) ttlInfo(writeIdx uint64) (expired bool, deleted bool) {
	return e.expireAt != 0 && writeIdx >= e.expireAt,
		e.deleteAt != 0 && writeIdx >= e.deleteAt
}

type storeImpl struct {
	data  *xsync.MapOf[string, entry]
	index atomic.Uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() store.IStore {
	return &storeImpl{
		data: xsync.NewMapOf[string, entry](),
	}
}

// incAndGetIndex increments the write index and returns the new value
func (s *storeImpl) incAndGetIndex() uint64 {
	return s.index.Add(1)
}

// newEntry creates an entry written at index idx
func newEntry(value []byte, idx, expireIn, deleteIn uint64) entry {
	e := entry{value: append([]byte(nil), value...)}
	if expireIn > 0 {
		e.expireAt = idx + expireIn
	}
	if deleteIn > 0 {
		e.deleteAt = idx + deleteIn
	}
	return e
}

// load returns the live entry for key, dropping it if it is past its deletion index
func (s *storeImpl) load(key string) (entry, bool) {
	e, ok := s.data.Load(key)
	if !ok {
		return entry{}, false
	}
	if _, deleted := e.ttlInfo(s.index.Load()); deleted {
		s.data.Delete(key)
		return entry{}, false
	}
	return e, true
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	return s.SetE(key, value, 0, 0)
}

func (s *storeImpl) SetE(key string, value []byte, expireIn, deleteIn uint64) error {
	s.data.Store(key, newEntry(value, s.incAndGetIndex(), expireIn, deleteIn))
	return nil
}

func (s *storeImpl) SetEIfUnset(key string, value []byte, expireIn, deleteIn uint64) error {
	idx := s.incAndGetIndex()
	s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if loaded {
			if _, deleted := old.ttlInfo(idx); !deleted {
				return old, false
			}
		}
		return newEntry(value, idx, expireIn, deleteIn), false
	})
	return nil
}

func (s *storeImpl) Expire(key string) error {
	idx := s.incAndGetIndex()
	s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if !loaded {
			return old, true
		}
		old.expireAt = idx
		return old, false
	})
	return nil
}

func (s *storeImpl) Delete(key string) error {
	s.incAndGetIndex()
	s.data.Delete(key)
	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	e, ok := s.load(key)
	if !ok {
		return nil, false, nil
	}
	if expired, _ := e.ttlInfo(s.index.Load()); expired {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	_, ok := s.load(key)
	return ok, nil
}

// Close is a no-op: the data lives as long as the store value.
func (s *storeImpl) Close() error {
	return nil
}

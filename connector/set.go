package connector

import (
	"github.com/google/btree"
)

// Set is a persistent sorted set of strings
type Set struct {
	persistent
	members *btree.BTreeG[string]
}

// NewSet returns an empty detached set
func NewSet() *Set {
	return &Set{
		persistent: persistent{loaded: true},
		members:    btree.NewOrderedG[string](btreeDegree),
	}
}

func (s *Set) Kind() Kind {
	return KindSet
}

func (s *Set) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureLoaded(s); err != nil {
		return 0, err
	}
	return s.members.Len(), nil
}

// Has reports whether member is in the set
func (s *Set) Has(member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureLoaded(s); err != nil {
		return false, err
	}
	return s.members.Has(member), nil
}

// Members returns all members in ascending order
func (s *Set) Members() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureLoaded(s); err != nil {
		return nil, err
	}

	members := make([]string, 0, s.members.Len())
	s.members.Ascend(func(member string) bool {
		members = append(members, member)
		return true
	})
	return members, nil
}

// Add inserts member and reports whether it was new. Nothing is written if it was not.
func (s *Set) Add(member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureLoaded(s); err != nil {
		return false, err
	}
	if _, replaced := s.members.ReplaceOrInsert(member); replaced {
		return false, nil
	}
	return true, save(s)
}

// Remove deletes member and reports whether it was present
func (s *Set) Remove(member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureLoaded(s); err != nil {
		return false, err
	}
	if _, removed := s.members.Delete(member); !removed {
		return false, nil
	}
	return true, save(s)
}

func (s *Set) bindChildren() (func(), error) {
	return func() {}, nil
}

func (s *Set) encode() ([]byte, error) {
	record := setRecord{Members: make([]string, 0, s.members.Len())}
	s.members.Ascend(func(member string) bool {
		record.Members = append(record.Members, member)
		return true
	})
	return encodeRecord(record)
}

func (s *Set) decode(data []byte) error {
	members := btree.NewOrderedG[string](btreeDegree)
	if len(data) > 0 {
		var record setRecord
		if err := decodeRecord(data, &record); err != nil {
			return err
		}
		for _, member := range record.Members {
			members.ReplaceOrInsert(member)
		}
	}
	s.members = members
	return nil
}

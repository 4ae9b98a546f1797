package storetesting

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/dKV-connector/lib/store"
	"sync"
	"testing"
)

// StoreFactory is a function that creates a new, empty instance of a IStore implementation
type StoreFactory func() store.IStore

// RunStoreTests runs the test suite for a IStore implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Expire", func(t *testing.T) {
			testExpire(t, factory())
		})

		t.Run("SetEIfUnset", func(t *testing.T) {
			testSetEIfUnset(t, factory())
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			testKeyExpiry(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, factory())
		})

		t.Run("Close", func(t *testing.T) {
			testClose(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// must fails the test if err is not nil
func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// expectValue fails the test unless key holds want (nil want means: not found)
func expectValue(t testing.TB, s store.IStore, key string, want []byte) {
	t.Helper()
	got, found, err := s.Get(key)
	must(t, err)
	if want == nil {
		if found {
			t.Errorf("Expected key %s to be absent, got %s", key, got)
		}
		return
	}
	if !found {
		t.Errorf("Expected key %s to exist", key)
		return
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected value %s for key %s, got %s", want, key, got)
	}
}

// expectHas fails the test unless Has(key) returns want
func expectHas(t testing.TB, s store.IStore, key string, want bool) {
	t.Helper()
	has, err := s.Has(key)
	must(t, err)
	if has != want {
		t.Errorf("Expected Has(%s) to be %v", key, want)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IStore) {
	defer s.Close()

	must(t, s.Set("key", []byte("value1")))
	expectValue(t, s, "key", []byte("value1"))

	must(t, s.Set("key", []byte("value2")))
	expectValue(t, s, "key", []byte("value2"))

	expectValue(t, s, "nonexistent-key", nil)

	retrieved, _, err := s.Get("key")
	must(t, err)
	retrieved[0] = 'X'
	expectValue(t, s, "key", []byte("value2"))

	input := []byte("input")
	must(t, s.Set("input", input))
	input[0] = 'X'
	expectValue(t, s, "input", []byte("input"))
}

func testDelete(t *testing.T, s store.IStore) {
	defer s.Close()

	must(t, s.Set("key", []byte("value")))
	must(t, s.Delete("key"))
	expectValue(t, s, "key", nil)
	expectHas(t, s, "key", false)

	// deleting a missing key is not an error
	must(t, s.Delete("key"))
}

func testExpire(t *testing.T, s store.IStore) {
	defer s.Close()

	must(t, s.Set("key", []byte("value")))
	must(t, s.Expire("key"))

	expectValue(t, s, "key", nil)
	expectHas(t, s, "key", true)

	// expiring a missing key does not create it
	must(t, s.Expire("missing"))
	expectHas(t, s, "missing", false)
}

func testSetEIfUnset(t *testing.T, s store.IStore) {
	defer s.Close()

	must(t, s.SetEIfUnset("key", []byte("first"), 0, 0))
	expectValue(t, s, "key", []byte("first"))

	must(t, s.SetEIfUnset("key", []byte("second"), 0, 0))
	expectValue(t, s, "key", []byte("first"))

	// an expired key still counts as set
	must(t, s.Expire("key"))
	must(t, s.SetEIfUnset("key", []byte("third"), 0, 0))
	expectValue(t, s, "key", nil)
	expectHas(t, s, "key", true)
}

func testKeyExpiry(t *testing.T, s store.IStore) {
	defer s.Close()

	// ttls count write operations
	must(t, s.SetE("key", []byte("value"), 2, 4))
	expectValue(t, s, "key", []byte("value"))

	must(t, s.Set("other", []byte("1")))
	expectValue(t, s, "key", []byte("value"))

	must(t, s.Set("other", []byte("2")))
	expectValue(t, s, "key", nil)
	expectHas(t, s, "key", true)

	must(t, s.Set("other", []byte("3")))
	must(t, s.Set("other", []byte("4")))
	expectHas(t, s, "key", false)

	// a deleted key can be set again with SetEIfUnset
	must(t, s.SetEIfUnset("key", []byte("again"), 0, 0))
	expectValue(t, s, "key", []byte("again"))
}

func testEdgeCases(t *testing.T, s store.IStore) {
	defer s.Close()

	must(t, s.Set("", []byte("empty key")))
	expectValue(t, s, "", []byte("empty key"))

	must(t, s.Set("empty", []byte{}))
	got, found, err := s.Get("empty")
	must(t, err)
	if !found || len(got) != 0 {
		t.Errorf("Expected empty value to be found and empty, got %v (found %v)", got, found)
	}

	large := bytes.Repeat([]byte("x"), 1<<20)
	must(t, s.Set("large", large))
	expectValue(t, s, "large", large)

	binary := []byte{0, 1, 2, 0xff, 0xfe}
	must(t, s.Set("binary", binary))
	expectValue(t, s, "binary", binary)
}

func testConcurrent(t *testing.T, s store.IStore) {
	defer s.Close()

	const workers = 8
	const keysPerWorker = 50

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < keysPerWorker; i++ {
				key := fmt.Sprintf("w%d-k%d", w, i)
				if err := s.Set(key, []byte(key)); err != nil {
					errs <- err
					return
				}
				got, found, err := s.Get(key)
				if err != nil || !found || string(got) != key {
					errs <- fmt.Errorf("read back %s: %q %v %v", key, got, found, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func testClose(t *testing.T, s store.IStore) {
	must(t, s.Close())
	must(t, s.Close())
}

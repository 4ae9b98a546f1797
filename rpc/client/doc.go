// Package client implements store.IStore on top of a dKV RPC transport.
//
// Key Components:
//
//   - NewRPCStore: Connects the given transport and returns a store that
//     forwards every operation to the configured shard. Close closes the
//     transport exactly once.
//
// Errors:
//
//	Transport failures are returned wrapped with %w, so a closed transport is
//	still recognisable with errors.Is(err, transport.ErrClosed). Error replies
//	from the server and malformed responses become *store.Error values.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:  []string{"localhost:8080"},
//	    RetryCount: 3,
//	  },
//	}
//
//	s, err := client.NewRPCStore(100, config, tcp.NewTCPClientTransport(), serializer.NewJSONSerializer())
//	if err != nil {
//	  return err
//	}
//	defer s.Close()
//
//	_ = s.Set("mykey", []byte("myvalue"))
//	value, exists, _ := s.Get("mykey")
//
// Thread Safety:
//
//	Stores are safe for concurrent use as long as the transport is.
package client

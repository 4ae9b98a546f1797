package connector

import (
	"fmt"
	"github.com/ValentinKolb/dKV-connector/lib/store"
	"github.com/ValentinKolb/dKV-connector/rpc/client"
	"github.com/ValentinKolb/dKV-connector/rpc/serializer"
	"github.com/ValentinKolb/dKV-connector/rpc/transport"
	"github.com/ValentinKolb/dKV-connector/rpc/transport/http"
	"github.com/ValentinKolb/dKV-connector/rpc/transport/tcp"
	"github.com/ValentinKolb/dKV-connector/rpc/transport/unix"
)

// Opener builds the storage backend for a new connection.
// The returned store is owned by the connection and closed together with it.
type Opener func(config Config) (store.IStore, error)

// NewTransport creates the client transport registered under name
func NewTransport(name string) (transport.IRPCClientTransport, error) {
	switch name {
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	case "http":
		return http.NewHttpClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %q, must be one of tcp, unix, http", name)
	}
}

// OpenRPCStore is the default Opener: it connects to the dKV server described by config
func OpenRPCStore(config Config) (store.IStore, error) {
	t, err := NewTransport(config.Transport)
	if err != nil {
		return nil, err
	}

	s, err := serializer.ByName(config.Serializer)
	if err != nil {
		return nil, err
	}

	st, err := client.NewRPCStore(config.Shard, config.Client, t, s)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s %v: %w", config.Transport, config.Client.Transport.Endpoints, err)
	}
	return st, nil
}

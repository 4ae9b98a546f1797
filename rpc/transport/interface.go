package transport

import (
	"errors"
	"github.com/ValentinKolb/dKV-connector/rpc/common"
)

// ErrClosed is returned by Send once the transport has been closed (or was never connected).
// Callers holding on to a transport use it to detect that their handle went stale.
var ErrClosed = errors.New("transport is closed")

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response.
	// After Close it must fail with an error wrapping ErrClosed.
	Send(shardId uint64, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}

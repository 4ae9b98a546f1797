package loopback

import (
	"fmt"
	"github.com/ValentinKolb/dKV-connector/lib/store"
	"github.com/ValentinKolb/dKV-connector/rpc/common"
	"github.com/ValentinKolb/dKV-connector/rpc/serializer"
	"github.com/ValentinKolb/dKV-connector/rpc/transport"
	"sync/atomic"
)

// NewLoopbackClientTransport creates a transport that answers every request in-process from s.
// All shard ids are served by the same store. The serializer must match the one the client uses.
func NewLoopbackClientTransport(s store.IStore, ser serializer.IRPCSerializer) transport.IRPCClientTransport {
	t := &loopbackTransport{store: s, serializer: ser}
	t.closed.Store(true)
	return t
}

type loopbackTransport struct {
	store      store.IStore
	serializer serializer.IRPCSerializer
	closed     atomic.Bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *loopbackTransport) Connect(_ common.ClientConfig) error {
	if t.store == nil {
		return fmt.Errorf("loopback transport has no store")
	}
	t.closed.Store(false)
	return nil
}

func (t *loopbackTransport) Send(_ uint64, req []byte) ([]byte, error) {
	if t.closed.Load() {
		return nil, transport.ErrClosed
	}

	var msg common.Message
	var resp *common.Message
	if err := t.serializer.Deserialize(req, &msg); err != nil {
		resp = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		resp = handle(&msg, t.store)
	}

	return t.serializer.Serialize(*resp)
}

func (t *loopbackTransport) Close() error {
	t.closed.Store(true)
	return nil
}

// --------------------------------------------------------------------------
// Request handling
// --------------------------------------------------------------------------

// handle executes req against s and builds the response message
func handle(req *common.Message, s store.IStore) *common.Message {
	switch req.MsgType {
	case common.MsgTKVSet:
		return common.NewResponse(req.MsgType, nil, false, s.Set(req.Key, req.Value))
	case common.MsgTKVSetE:
		return common.NewResponse(req.MsgType, nil, false, s.SetE(req.Key, req.Value, req.ExpireIn, req.DeleteIn))
	case common.MsgTKVSetEIfUnset:
		return common.NewResponse(req.MsgType, nil, false, s.SetEIfUnset(req.Key, req.Value, req.ExpireIn, req.DeleteIn))
	case common.MsgTKVExpire:
		return common.NewResponse(req.MsgType, nil, false, s.Expire(req.Key))
	case common.MsgTKVDelete:
		return common.NewResponse(req.MsgType, nil, false, s.Delete(req.Key))
	case common.MsgTKVGet:
		val, ok, err := s.Get(req.Key)
		return common.NewResponse(req.MsgType, val, ok, err)
	case common.MsgTKVHas:
		ok, err := s.Has(req.Key)
		return common.NewResponse(req.MsgType, nil, ok, err)
	default:
		return common.NewErrorResponse(fmt.Sprintf("loopback: unsupported message type: %s", req.MsgType))
	}
}

package client

import (
	"fmt"
	"github.com/ValentinKolb/dKV-connector/lib/store"
	"github.com/ValentinKolb/dKV-connector/rpc/common"
	"github.com/ValentinKolb/dKV-connector/rpc/serializer"
	"github.com/ValentinKolb/dKV-connector/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	shardId    uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invoke sends req over the adapter's transport, see invokeRPCRequest
func (a *rpcClientAdapter) invoke(req *common.Message) (*common.Message, error) {
	return invokeRPCRequest(a.shardId, req, a.transport, a.serializer)
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests
// It takes a shard ID, a request message, a transport layer and a serializer as parameters
// It returns a response message and an error if any occurs
// This method also checks if the response is an error response and if the type of the response is the expected type.
// Transport errors are wrapped, so errors.Is(err, transport.ErrClosed) keeps working for callers.
func invokeRPCRequest(shardId uint64, req *common.Message, t transport.IRPCClientTransport, s serializer.IRPCSerializer) (*common.Message, error) {
	reqBytes, err := s.Serialize(*req)
	if err != nil {
		return nil, err
	}

	respBytes, err := t.Send(shardId, reqBytes)
	if err != nil {
		Logger.Debugf("RPC %s request for shard %d failed: %v", req.MsgType, shardId, err)
		return nil, fmt.Errorf("RPC %s request: %w", req.MsgType, err)
	}

	resp := &common.Message{}
	err = s.Deserialize(respBytes, resp)
	if err != nil {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("RPC response could not be decoded: %s", err))
	}

	// Check if the response is an error response
	if resp.MsgType == common.MsgTError || resp.Err != "" {
		return nil, store.NewError(store.RetCInternalError, resp.Err)
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, store.NewError(store.RetCInvalidOperation,
			fmt.Sprintf("unexpected message type: %s, expected %s", resp.MsgType, req.MsgType))
	}

	return resp, nil
}

package client

import (
	"github.com/ValentinKolb/dKV-connector/lib/store"
	"github.com/ValentinKolb/dKV-connector/rpc/common"
	"github.com/ValentinKolb/dKV-connector/rpc/serializer"
	"github.com/ValentinKolb/dKV-connector/rpc/transport"
	"sync"
)

// NewRPCStore creates a new RPC store
// The function takes a shard ID, a config, a transport and a serializer as parameters.
// The transport is connected here and closed by the Close method of the returned store.
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC store
	s := rpcStore{
		rpcClientAdapter: rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	return &s, nil
}

type rpcStore struct {
	rpcClientAdapter
	closeOnce sync.Once
	closeErr  error
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Set(key string, value []byte) (err error) {
	_, err = i.invoke(common.NewSetRequest(key, value))
	return err
}

func (i *rpcStore) SetE(key string, value []byte, expireIn, deleteIn uint64) (err error) {
	_, err = i.invoke(common.NewSetERequest(key, value, expireIn, deleteIn))
	return err
}

func (i *rpcStore) SetEIfUnset(key string, value []byte, expireIn, deleteIn uint64) (err error) {
	_, err = i.invoke(common.NewSetEIfUnsetRequest(key, value, expireIn, deleteIn))
	return err
}

func (i *rpcStore) Expire(key string) (err error) {
	_, err = i.invoke(common.NewExpireRequest(key))
	return err
}

func (i *rpcStore) Delete(key string) (err error) {
	_, err = i.invoke(common.NewDeleteRequest(key))
	return err
}

func (i *rpcStore) Get(key string) (value []byte, loaded bool, err error) {
	resp, err := i.invoke(common.NewGetRequest(key))
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Ok, nil
}

func (i *rpcStore) Has(key string) (loaded bool, err error) {
	resp, err := i.invoke(common.NewHasRequest(key))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) Close() error {
	i.closeOnce.Do(func() {
		i.closeErr = i.transport.Close()
	})
	return i.closeErr
}

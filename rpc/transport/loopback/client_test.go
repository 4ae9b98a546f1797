package loopback

import (
	"errors"
	"github.com/ValentinKolb/dKV-connector/lib/store/memstore"
	"github.com/ValentinKolb/dKV-connector/rpc/common"
	"github.com/ValentinKolb/dKV-connector/rpc/serializer"
	"github.com/ValentinKolb/dKV-connector/rpc/transport"
	"testing"
)

func roundTrip(t *testing.T, tr transport.IRPCClientTransport, ser serializer.IRPCSerializer, req *common.Message) *common.Message {
	t.Helper()
	reqBytes, err := ser.Serialize(*req)
	if err != nil {
		t.Fatal(err)
	}
	respBytes, err := tr.Send(0, reqBytes)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	resp := &common.Message{}
	if err := ser.Deserialize(respBytes, resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestClosedUntilConnected(t *testing.T) {
	tr := NewLoopbackClientTransport(memstore.NewMemoryStore(), serializer.NewJSONSerializer())

	if _, err := tr.Send(0, nil); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("Expected ErrClosed before Connect, got %v", err)
	}
	if err := tr.Connect(common.ClientConfig{}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Send(0, nil); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("Expected ErrClosed after Close, got %v", err)
	}
}

func TestConnectWithoutStore(t *testing.T) {
	tr := NewLoopbackClientTransport(nil, serializer.NewJSONSerializer())
	if err := tr.Connect(common.ClientConfig{}); err == nil {
		t.Error("Expected Connect to fail without a store")
	}
}

func TestRequests(t *testing.T) {
	ser := serializer.NewGOBSerializer()
	s := memstore.NewMemoryStore()
	tr := NewLoopbackClientTransport(s, ser)
	if err := tr.Connect(common.ClientConfig{}); err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	resp := roundTrip(t, tr, ser, common.NewSetRequest("key", []byte("value")))
	if resp.MsgType != common.MsgTKVSet || resp.Err != "" {
		t.Fatalf("Unexpected set response: %+v", resp)
	}

	resp = roundTrip(t, tr, ser, common.NewGetRequest("key"))
	if !resp.Ok || string(resp.Value) != "value" {
		t.Errorf("Unexpected get response: %+v", resp)
	}

	resp = roundTrip(t, tr, ser, common.NewHasRequest("missing"))
	if resp.MsgType != common.MsgTKVHas || resp.Ok {
		t.Errorf("Unexpected has response: %+v", resp)
	}

	// the transport writes through to the store it serves
	if value, found, _ := s.Get("key"); !found || string(value) != "value" {
		t.Errorf("Store does not hold the written value")
	}

	// closing the transport leaves the store usable
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := s.Get("key"); !found {
		t.Errorf("Store lost its data when the transport was closed")
	}
}

func TestInvalidRequests(t *testing.T) {
	ser := serializer.NewJSONSerializer()
	tr := NewLoopbackClientTransport(memstore.NewMemoryStore(), ser)
	if err := tr.Connect(common.ClientConfig{}); err != nil {
		t.Fatal(err)
	}

	resp := roundTrip(t, tr, ser, &common.Message{MsgType: common.MsgTSuccess})
	if resp.MsgType != common.MsgTError || resp.Err == "" {
		t.Errorf("Expected error response for unsupported type, got %+v", resp)
	}

	respBytes, err := tr.Send(0, []byte("not json"))
	if err != nil {
		t.Fatal(err)
	}
	resp = &common.Message{}
	if err := ser.Deserialize(respBytes, resp); err != nil {
		t.Fatal(err)
	}
	if resp.MsgType != common.MsgTError {
		t.Errorf("Expected error response for garbage, got %+v", resp)
	}
}

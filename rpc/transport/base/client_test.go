package base

import (
	"bytes"
	"errors"
	"github.com/ValentinKolb/dKV-connector/rpc/common"
	"github.com/ValentinKolb/dKV-connector/rpc/transport"
	"net"
	"sync"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payloads := [][]byte{[]byte("hello"), {}, bytes.Repeat([]byte{0xab}, 4096)}

	go func() {
		for i, p := range payloads {
			if err := writeFrame(client, 7, uint64(i+1), p); err != nil {
				return
			}
		}
	}()

	// a small buffer forces readFrame to allocate for the large payload
	buf := make([]byte, 32)
	for i, want := range payloads {
		shardID, requestID, data, err := readFrame(server, buf)
		if err != nil {
			t.Fatalf("readFrame failed: %v", err)
		}
		if shardID != 7 || requestID != uint64(i+1) {
			t.Errorf("Unexpected header: shard %d, request %d", shardID, requestID)
		}
		if !bytes.Equal(data, want) {
			t.Errorf("Payload %d differs: got %d bytes, want %d", i, len(data), len(want))
		}
	}
}

// pipeConnector connects to an in-process server that answers every frame
// with its payload reversed
type pipeConnector struct {
	mu    sync.Mutex
	conns []net.Conn
}

func (p *pipeConnector) GetName() string {
	return "pipe"
}

func (p *pipeConnector) Connect(string) (net.Conn, error) {
	client, server := net.Pipe()
	p.mu.Lock()
	p.conns = append(p.conns, server)
	p.mu.Unlock()

	go func() {
		defer server.Close()
		for {
			shardID, requestID, data, err := readFrame(server, nil)
			if err != nil {
				return
			}
			reversed := make([]byte, len(data))
			for i, b := range data {
				reversed[len(data)-1-i] = b
			}
			if err := writeFrame(server, shardID, requestID, reversed); err != nil {
				return
			}
		}
	}()
	return client, nil
}

func (p *pipeConnector) UpgradeConnection(net.Conn, common.ClientConfig) error {
	return nil
}

func pipeConfig() common.ClientConfig {
	return common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{"a", "b"},
			RetryCount:             1,
			ConnectionsPerEndpoint: 2,
		},
	}
}

func TestClientTransportSend(t *testing.T) {
	connector := &pipeConnector{}
	tr := NewBaseClientTransport(connector)
	if err := tr.Connect(pipeConfig()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer tr.Close()

	if len(connector.conns) != 4 {
		t.Errorf("Expected 4 connections, got %d", len(connector.conns))
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := tr.Send(1, []byte("abc"))
			if err != nil {
				t.Errorf("Send failed: %v", err)
				return
			}
			if string(resp) != "cba" {
				t.Errorf("Unexpected response %q", resp)
			}
		}()
	}
	wg.Wait()
}

func TestClientTransportSendUnderBackpressure(t *testing.T) {
	connector := &pipeConnector{}
	config := pipeConfig()
	config.Transport.Endpoints = []string{"a"}
	config.Transport.ConnectionsPerEndpoint = 1

	tr := NewBaseClientTransport(connector)
	if err := tr.Connect(config); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer tr.Close()

	// every writer queues behind the pipe while the server is busy answering,
	// so responses have to be drained while requests are still being written
	payload := bytes.Repeat([]byte("ab"), 32*1024)
	want := bytes.Repeat([]byte("ba"), 32*1024)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := tr.Send(1, payload)
			if err != nil {
				t.Errorf("Send failed: %v", err)
				return
			}
			if !bytes.Equal(resp, want) {
				t.Errorf("Unexpected response of %d bytes", len(resp))
			}
		}()
	}
	wg.Wait()
}

func TestClientTransportClosed(t *testing.T) {
	tr := NewBaseClientTransport(&pipeConnector{})

	if _, err := tr.Send(1, []byte("x")); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("Expected ErrClosed before Connect, got %v", err)
	}

	if err := tr.Connect(pipeConfig()); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := tr.Send(1, []byte("x")); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("Expected ErrClosed after Close, got %v", err)
	}
}

func TestClientTransportNoEndpoints(t *testing.T) {
	tr := NewBaseClientTransport(&pipeConnector{})
	if err := tr.Connect(common.ClientConfig{}); err == nil {
		t.Error("Expected Connect to fail without endpoints")
	}
}

package serializer

import (
	"bytes"
	"github.com/ValentinKolb/dKV-connector/rpc/common"
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON": NewJSONSerializer,
	"GOB":  NewGOBSerializer,
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for msgType := common.MsgTSuccess; msgType <= common.MsgTKVHas; msgType++ {
				msg := common.Message{MsgType: msgType, Key: "k", Value: []byte("v"), Ok: true}

				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType, err)
					continue
				}

				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message doesn't match after round trip:\nOriginal: %+v\nResult: %+v", msg, result)
				}
			}
		})
	}
}

// TestJSONMessageTypeNames tests that the json serializer writes message types by name
func TestJSONMessageTypeNames(t *testing.T) {
	data, err := NewJSONSerializer().Serialize(*common.NewSetEIfUnsetRequest("k", nil, 0, 0))
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	if !bytes.Contains(data, []byte(`"msg_type":"setEIfUnset"`)) {
		t.Errorf("Expected message type name in %s", data)
	}
}

// TestInvalidData tests that corrupt input is rejected
func TestInvalidData(t *testing.T) {
	testCases := []struct {
		name       string
		serializer IRPCSerializer
		data       []byte
	}{
		{"JSON empty", NewJSONSerializer(), []byte{}},
		{"JSON unknown type", NewJSONSerializer(), []byte(`{"msg_type":"acquire"}`)},
		{"JSON numeric type", NewJSONSerializer(), []byte(`{"msg_type":3}`)},
		{"GOB empty", NewGOBSerializer(), []byte{}},
		{"GOB garbage", NewGOBSerializer(), []byte{0xff, 0x01, 0x02}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			if err := tc.serializer.Deserialize(tc.data, &msg); err == nil {
				t.Errorf("Expected error but got none")
			}
		})
	}
}

// TestByName tests the serializer lookup
func TestByName(t *testing.T) {
	for _, name := range []string{"json", "gob"} {
		if _, err := ByName(name); err != nil {
			t.Errorf("Expected serializer %s, got error: %v", name, err)
		}
	}
	if _, err := ByName("binary"); err == nil {
		t.Errorf("Expected error for unknown serializer")
	}
}

package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes and decodes gateway frames. The format is negotiated once
// at connect time via the ?format= query parameter.
type Codec interface {
	// Name is the wire name of the format ("json", "msgpack").
	Name() string
	// MessageType is the WebSocket frame type frames travel in.
	MessageType() int
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// FormatJSON and FormatMsgpack are the supported gateway encodings.
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// CodecFor returns the codec for a wire format name. An empty name selects
// JSON.
func CodecFor(format string) (Codec, error) {
	switch format {
	case "", FormatJSON:
		return jsonCodec{}, nil
	case FormatMsgpack:
		return msgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("gateway: unknown frame format %q", format)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return FormatJSON }
func (jsonCodec) MessageType() int                   { return websocket.TextMessage }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string                       { return FormatMsgpack }
func (msgpackCodec) MessageType() int                   { return websocket.BinaryMessage }
func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

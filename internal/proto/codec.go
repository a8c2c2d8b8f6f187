package proto

import (
	"google.golang.org/grpc/encoding"
	gproto "google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content subtype served by Codec. It is the default
// protobuf name, so the service speaks plain application/grpc.
const CodecName = "proto"

// Codec encodes Message values with their hand-written wire layout and
// falls back to the protobuf runtime for generated messages, so it can
// replace the default proto codec process-wide.
type Codec struct{}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case Message:
		return m.MarshalWire()
	case gproto.Message:
		return gproto.Marshal(m)
	}
	return nil, errNotMessage(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case Message:
		return m.UnmarshalWire(data)
	case gproto.Message:
		return gproto.Unmarshal(data, m)
	}
	return errNotMessage(v)
}

func init() {
	encoding.RegisterCodec(Codec{})
}

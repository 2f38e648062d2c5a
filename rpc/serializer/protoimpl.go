package serializer

import (
	"github.com/ValentinKolb/dEcho/rpc/common"
	"google.golang.org/protobuf/encoding/protowire"
	"unicode/utf8"
)

// NewProtoSerializer creates a new serializer using the protobuf wire format.
// The layout matches the schema
//
//	message EchoMessage   { string content = 1; }
//	message AddRequest    { int32 a = 1; int32 b = 2; }
//	message AddResponse   { int32 result = 1; }
//	message ClientMessage { oneof message { EchoMessage echo_message = 1; AddRequest add_request = 2; } }
//	message ServerMessage { oneof message { EchoMessage echo_message = 1; AddResponse add_response = 2; } }
func NewProtoSerializer() IRPCSerializer {
	return &protoSerializerImpl{}
}

// protoSerializerImpl implements IRPCSerializer on top of protowire
type protoSerializerImpl struct {
}

// Field numbers of the schema
const (
	fieldEcho protowire.Number = 1 // echo_message in ClientMessage and ServerMessage
	fieldAdd  protowire.Number = 2 // add_request in ClientMessage, add_response in ServerMessage

	fieldContent protowire.Number = 1
	fieldA       protowire.Number = 1
	fieldB       protowire.Number = 2
	fieldResult  protowire.Number = 1
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (p protoSerializerImpl) GetName() string {
	return "proto"
}

func (p protoSerializerImpl) SerializeRequest(req common.Request) ([]byte, error) {
	if err := checkVariants(req.Variants()); err != nil {
		return nil, err
	}

	var b []byte
	switch {
	case req.Echo != nil:
		b = appendMessage(b, fieldEcho, appendEcho(nil, req.Echo))
	case req.Add != nil:
		var inner []byte
		inner = appendInt32(inner, fieldA, req.Add.A)
		inner = appendInt32(inner, fieldB, req.Add.B)
		b = appendMessage(b, fieldAdd, inner)
	}
	return b, nil
}

func (p protoSerializerImpl) DeserializeRequest(data []byte, req *common.Request) error {
	*req = common.Request{}

	// a variant that appears more than once is merged into the previous value,
	// switching to the other variant clears it
	return consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldEcho:
			v, n, err := consumeMessage("echo_message", typ, b)
			if err != nil {
				return 0, err
			}
			echo := &common.EchoMessage{}
			if req.Echo != nil {
				*echo = *req.Echo
			}
			if err := consumeEcho(v, echo); err != nil {
				return 0, err
			}
			*req = common.Request{Echo: echo}
			return n, nil
		case fieldAdd:
			v, n, err := consumeMessage("add_request", typ, b)
			if err != nil {
				return 0, err
			}
			add := &common.AddRequest{}
			if req.Add != nil {
				*add = *req.Add
			}
			err = consumeFields(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case fieldA:
					return consumeInt32("a", typ, b, &add.A)
				case fieldB:
					return consumeInt32("b", typ, b, &add.B)
				}
				return -1, nil
			})
			if err != nil {
				return 0, err
			}
			*req = common.Request{Add: add}
			return n, nil
		}
		return -1, nil
	})
}

func (p protoSerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	if err := checkVariants(resp.Variants()); err != nil {
		return nil, err
	}

	var b []byte
	switch {
	case resp.Echo != nil:
		b = appendMessage(b, fieldEcho, appendEcho(nil, resp.Echo))
	case resp.Add != nil:
		b = appendMessage(b, fieldAdd, appendInt32(nil, fieldResult, resp.Add.Result))
	}
	return b, nil
}

func (p protoSerializerImpl) DeserializeResponse(data []byte, resp *common.Response) error {
	*resp = common.Response{}

	return consumeFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldEcho:
			v, n, err := consumeMessage("echo_message", typ, b)
			if err != nil {
				return 0, err
			}
			echo := &common.EchoMessage{}
			if resp.Echo != nil {
				*echo = *resp.Echo
			}
			if err := consumeEcho(v, echo); err != nil {
				return 0, err
			}
			*resp = common.Response{Echo: echo}
			return n, nil
		case fieldAdd:
			v, n, err := consumeMessage("add_response", typ, b)
			if err != nil {
				return 0, err
			}
			add := &common.AddResponse{}
			if resp.Add != nil {
				*add = *resp.Add
			}
			err = consumeFields(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				if num == fieldResult {
					return consumeInt32("result", typ, b, &add.Result)
				}
				return -1, nil
			})
			if err != nil {
				return 0, err
			}
			*resp = common.Response{Add: add}
			return n, nil
		}
		return -1, nil
	})
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// appendMessage appends an embedded message field. Empty messages are still
// written so that the oneof variant stays populated on the other side
func appendMessage(b []byte, num protowire.Number, inner []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

// appendEcho encodes the fields of an EchoMessage (proto3: empty content is omitted)
func appendEcho(b []byte, m *common.EchoMessage) []byte {
	if m.Content == "" {
		return b
	}
	b = protowire.AppendTag(b, fieldContent, protowire.BytesType)
	return protowire.AppendString(b, m.Content)
}

// appendInt32 encodes an int32 field; negative values are sign extended to ten bytes as protobuf requires
func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

// consumeFields walks all fields in b. fn returns the number of bytes it consumed,
// or -1 if the field is unknown and should be skipped
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed("tag: %v", protowire.ParseError(n))
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return malformed("field %d: %v", num, protowire.ParseError(m))
			}
		}
		b = b[m:]
	}
	return nil
}

// consumeMessage reads the payload of an embedded message field
func consumeMessage(name string, typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, malformed("%s: invalid wire type %d", name, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, malformed("%s: %v", name, protowire.ParseError(n))
	}
	return v, n, nil
}

// consumeEcho merges the fields of an EchoMessage into echo
func consumeEcho(b []byte, echo *common.EchoMessage) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != fieldContent {
			return -1, nil
		}
		if typ != protowire.BytesType {
			return 0, malformed("content: invalid wire type %d", typ)
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, malformed("content: %v", protowire.ParseError(n))
		}
		if !utf8.Valid(v) {
			return 0, malformed("content is not valid UTF-8")
		}
		echo.Content = string(v)
		return n, nil
	})
}

func consumeInt32(name string, typ protowire.Type, b []byte, dst *int32) (int, error) {
	if typ != protowire.VarintType {
		return 0, malformed("%s: invalid wire type %d", name, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, malformed("%s: %v", name, protowire.ParseError(n))
	}
	*dst = int32(v)
	return n, nil
}

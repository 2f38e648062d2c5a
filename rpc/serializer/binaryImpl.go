package serializer

import (
	"encoding/binary"
	"github.com/ValentinKolb/dEcho/rpc/common"
	"unicode/utf8"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and size
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format:
//
//	1 byte:  MessageType (0 = no variant)
//	echo:    4 bytes content length (uint32, big endian) + content
//	add req: 4 bytes a + 4 bytes b (int32, big endian two's complement)
//	add resp: 4 bytes result
type binarySerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) GetName() string {
	return "binary"
}

func (b binarySerializerImpl) SerializeRequest(req common.Request) ([]byte, error) {
	if err := checkVariants(req.Variants()); err != nil {
		return nil, err
	}

	switch req.Type() {
	case common.MsgTEcho:
		return b.writeEcho(req.Echo), nil
	case common.MsgTAdd:
		result := make([]byte, 9)
		result[0] = byte(common.MsgTAdd)
		binary.BigEndian.PutUint32(result[1:5], uint32(req.Add.A))
		binary.BigEndian.PutUint32(result[5:9], uint32(req.Add.B))
		return result, nil
	default:
		return []byte{byte(common.MsgTUnknown)}, nil
	}
}

func (b binarySerializerImpl) DeserializeRequest(data []byte, req *common.Request) error {
	*req = common.Request{}

	msgType, err := b.readType(data)
	if err != nil {
		return err
	}

	switch msgType {
	case common.MsgTUnknown:
		return b.expectLen(data, 1)
	case common.MsgTEcho:
		echo, err := b.readEcho(data)
		if err != nil {
			return err
		}
		req.Echo = echo
	case common.MsgTAdd:
		if err := b.expectLen(data, 9); err != nil {
			return err
		}
		req.Add = &common.AddRequest{
			A: int32(binary.BigEndian.Uint32(data[1:5])),
			B: int32(binary.BigEndian.Uint32(data[5:9])),
		}
	}
	return nil
}

func (b binarySerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	if err := checkVariants(resp.Variants()); err != nil {
		return nil, err
	}

	switch resp.Type() {
	case common.MsgTEcho:
		return b.writeEcho(resp.Echo), nil
	case common.MsgTAdd:
		result := make([]byte, 5)
		result[0] = byte(common.MsgTAdd)
		binary.BigEndian.PutUint32(result[1:5], uint32(resp.Add.Result))
		return result, nil
	default:
		return []byte{byte(common.MsgTUnknown)}, nil
	}
}

func (b binarySerializerImpl) DeserializeResponse(data []byte, resp *common.Response) error {
	*resp = common.Response{}

	msgType, err := b.readType(data)
	if err != nil {
		return err
	}

	switch msgType {
	case common.MsgTUnknown:
		return b.expectLen(data, 1)
	case common.MsgTEcho:
		echo, err := b.readEcho(data)
		if err != nil {
			return err
		}
		resp.Echo = echo
	case common.MsgTAdd:
		if err := b.expectLen(data, 5); err != nil {
			return err
		}
		resp.Add = &common.AddResponse{
			Result: int32(binary.BigEndian.Uint32(data[1:5])),
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readType reads and checks the message type byte
func (b binarySerializerImpl) readType(data []byte) (common.MessageType, error) {
	if len(data) < 1 {
		return common.MsgTUnknown, malformed("data too short for message header")
	}
	msgType := common.MessageType(data[0])
	if msgType > common.MsgTAdd {
		return common.MsgTUnknown, malformed("unknown message type %d", data[0])
	}
	return msgType, nil
}

// expectLen checks that data has exactly the size of a fixed length message
func (b binarySerializerImpl) expectLen(data []byte, size int) error {
	if len(data) != size {
		return malformed("expected %d bytes for message type %s, got %d", size, common.MessageType(data[0]), len(data))
	}
	return nil
}

func (b binarySerializerImpl) writeEcho(echo *common.EchoMessage) []byte {
	contentLen := len(echo.Content)
	result := make([]byte, 5+contentLen)
	result[0] = byte(common.MsgTEcho)
	binary.BigEndian.PutUint32(result[1:5], uint32(contentLen))
	copy(result[5:], echo.Content)
	return result
}

func (b binarySerializerImpl) readEcho(data []byte) (*common.EchoMessage, error) {
	if len(data) < 5 {
		return nil, malformed("data too short for content length")
	}
	contentLen := binary.BigEndian.Uint32(data[1:5])
	if uint64(len(data)-5) != uint64(contentLen) {
		return nil, malformed("content length %d does not match payload size %d", contentLen, len(data)-5)
	}
	content := data[5:]
	if !utf8.Valid(content) {
		return nil, malformed("content is not valid UTF-8")
	}
	return &common.EchoMessage{Content: string(content)}, nil
}

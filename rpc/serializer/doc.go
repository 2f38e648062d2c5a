// Package serializer provides envelope serialization for the dEcho service.
// It defines a common interface and multiple implementations for encoding
// requests and responses to bytes and back.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//     Decode errors caused by invalid input always wrap common.ErrMalformed, so the
//     connection loop can tell a bad message apart from an I/O failure.
//
//   - protoSerializerImpl: Protobuf wire format written with protowire. It is byte
//     compatible with the ClientMessage / ServerMessage schema (oneof echo_message = 1,
//     add_request / add_response = 2). Unknown fields are skipped and the last oneof
//     field wins, as with generated protobuf code.
//
//   - binarySerializerImpl: Compact custom format (type byte plus fixed or length
//     prefixed fields).
//
//   - jsonSerializerImpl: JSON encoding, useful for debugging with tools like netcat.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s := serializer.NewProtoSerializer()
//	data, err := s.SerializeRequest(*common.NewEchoRequest("hello"))
//	// ... send data ...
//	var resp common.Response
//	err = s.DeserializeResponse(receivedData, &resp)
package serializer

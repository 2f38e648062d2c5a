package serializer

import (
	"fmt"
	"github.com/ValentinKolb/dEcho/rpc/common"
)

// IRPCSerializer is the interface for all envelope serializers.
// Requests travel from client to server, responses from server to client.
type IRPCSerializer interface {
	// SerializeRequest serializes a Request into a byte array
	SerializeRequest(req common.Request) ([]byte, error)
	// DeserializeRequest deserializes a byte array into the given Request.
	// Errors caused by invalid input wrap common.ErrMalformed
	DeserializeRequest(b []byte, req *common.Request) error
	// SerializeResponse serializes a Response into a byte array
	SerializeResponse(resp common.Response) ([]byte, error)
	// DeserializeResponse deserializes a byte array into the given Response.
	// Errors caused by invalid input wrap common.ErrMalformed
	DeserializeResponse(b []byte, resp *common.Response) error
	// GetName returns the name of the serializer (e.g. "proto", "json")
	GetName() string
}

// NewSerializer returns the serializer registered under the given name
func NewSerializer(name string) (IRPCSerializer, error) {
	switch name {
	case "proto", "protobuf":
		return NewProtoSerializer(), nil
	case "binary":
		return NewBinarySerializer(), nil
	case "json":
		return NewJSONSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s (expected one of: proto, binary, json)", name)
	}
}

// malformed wraps err so that callers can detect decode failures with errors.Is(err, common.ErrMalformed)
func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", common.ErrMalformed, fmt.Sprintf(format, args...))
}

// checkVariants returns an error if more than one variant of an envelope is set
func checkVariants(n int) error {
	if n > 1 {
		return fmt.Errorf("envelope has %d variants set, at most one is allowed", n)
	}
	return nil
}

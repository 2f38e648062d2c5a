package server

import (
	"github.com/ValentinKolb/dEcho/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for turning a decoded request into a response
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response.
	// Requests without a populated variant return common.ErrProtocolViolation.
	// Errors never terminate the connection, they are logged and the
	// connection waits for the next message
	Handle(req *common.Request) (resp *common.Response, err error)
}

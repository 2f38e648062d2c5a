package server

import (
	"github.com/ValentinKolb/dEcho/rpc/common"
)

// NewEchoAdapter creates the adapter that answers Echo requests with their
// content and AddRequests with the sum of both operands
func NewEchoAdapter() IRPCServerAdapter {
	return &echoAdapterImpl{}
}

type echoAdapterImpl struct{}

func (adapter *echoAdapterImpl) Handle(req *common.Request) (*common.Response, error) {
	switch req.Type() {
	case common.MsgTEcho:
		Logger.Debugf("Received EchoMessage: %q", req.Echo.Content)
		return common.NewEchoResponse(req.Echo.Content), nil
	case common.MsgTAdd:
		Logger.Debugf("Received AddRequest: a=%d b=%d", req.Add.A, req.Add.B)
		// int32 addition wraps around on overflow
		return common.NewAddResponse(req.Add.A + req.Add.B), nil
	default:
		return nil, common.ErrProtocolViolation
	}
}

package serializer

import (
	"encoding/json"
	"github.com/ValentinKolb/dEcho/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) GetName() string {
	return "json"
}

func (j jsonSerializerImpl) SerializeRequest(req common.Request) ([]byte, error) {
	if err := checkVariants(req.Variants()); err != nil {
		return nil, err
	}
	return json.Marshal(req)
}

func (j jsonSerializerImpl) DeserializeRequest(b []byte, req *common.Request) error {
	*req = common.Request{}
	if err := json.Unmarshal(b, req); err != nil {
		return malformed("%v", err)
	}
	if req.Variants() > 1 {
		return malformed("request has %d variants set", req.Variants())
	}
	return nil
}

func (j jsonSerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	if err := checkVariants(resp.Variants()); err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

func (j jsonSerializerImpl) DeserializeResponse(b []byte, resp *common.Response) error {
	*resp = common.Response{}
	if err := json.Unmarshal(b, resp); err != nil {
		return malformed("%v", err)
	}
	if resp.Variants() > 1 {
		return malformed("response has %d variants set", resp.Variants())
	}
	return nil
}

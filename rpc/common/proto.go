package common

// --------------------------------------------------------------------------
// Envelope Structures
// --------------------------------------------------------------------------

// EchoMessage carries a string that is sent back unchanged.
// It is used both as a request and as a response variant.
type EchoMessage struct {
	Content string `json:"content"`
}

// AddRequest asks the server to add two 32-bit integers
type AddRequest struct {
	A int32 `json:"a"`
	B int32 `json:"b"`
}

// AddResponse carries the (wrapping) sum of an AddRequest
type AddResponse struct {
	Result int32 `json:"result"`
}

// Request is the envelope sent from a client to the server.
// Exactly one of the fields should be set; a request without any
// populated variant is a protocol violation.
type Request struct {
	Echo *EchoMessage `json:"echo_message,omitempty"`
	Add  *AddRequest  `json:"add_request,omitempty"`
}

// Response is the envelope sent from the server to a client.
// Exactly one of the fields should be set.
type Response struct {
	Echo *EchoMessage `json:"echo_message,omitempty"`
	Add  *AddResponse `json:"add_response,omitempty"`
}

// Type returns the variant populated in the request.
// MsgTUnknown is returned if no variant is set.
func (r *Request) Type() MessageType {
	switch {
	case r.Echo != nil:
		return MsgTEcho
	case r.Add != nil:
		return MsgTAdd
	default:
		return MsgTUnknown
	}
}

// Variants returns the number of populated variants
func (r *Request) Variants() int {
	n := 0
	if r.Echo != nil {
		n++
	}
	if r.Add != nil {
		n++
	}
	return n
}

// Type returns the variant populated in the response.
// MsgTUnknown is returned if no variant is set.
func (r *Response) Type() MessageType {
	switch {
	case r.Echo != nil:
		return MsgTEcho
	case r.Add != nil:
		return MsgTAdd
	default:
		return MsgTUnknown
	}
}

// Variants returns the number of populated variants
func (r *Response) Variants() int {
	n := 0
	if r.Echo != nil {
		n++
	}
	if r.Add != nil {
		n++
	}
	return n
}

// --------------------------------------------------------------------------
// Envelope Factory Functions
// --------------------------------------------------------------------------

// NewEchoRequest creates a new Echo request
func NewEchoRequest(content string) *Request {
	return &Request{Echo: &EchoMessage{Content: content}}
}

// NewAddRequest creates a new Add request
func NewAddRequest(a, b int32) *Request {
	return &Request{Add: &AddRequest{A: a, B: b}}
}

// NewEchoResponse creates a new Echo response
func NewEchoResponse(content string) *Response {
	return &Response{Echo: &EchoMessage{Content: content}}
}

// NewAddResponse creates a new Add response
func NewAddResponse(result int32) *Response {
	return &Response{Add: &AddResponse{Result: result}}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType identifies the variant carried by an envelope.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTEcho:
		return "echo"
	case MsgTAdd:
		return "add"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	MsgTUnknown MessageType = iota // No variant populated
	MsgTEcho                       // Echo request or response
	MsgTAdd                        // AddRequest or AddResponse
)

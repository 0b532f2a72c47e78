package socket

// Response outcome types.
const (
	TypeSuccess = "SUCCESS"
	TypeError   = "ERROR"
)

// Response is the binary outcome envelope used by every transactional
// event: either a SUCCESS carrying data or an ERROR carrying a message.
type Response struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
	Msg  string `json:"msg,omitempty"`
}

// OK builds a SUCCESS response carrying data.
func OK(data any) Response {
	return Response{Type: TypeSuccess, Data: data}
}

// Err builds an ERROR response carrying msg.
func Err(msg string) Response {
	return Response{Type: TypeError, Msg: msg}
}

// IsError reports whether the response is an ERROR outcome.
func (r Response) IsError() bool {
	return r.Type == TypeError
}

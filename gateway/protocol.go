package gateway

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ProtocolVersion is the current wire protocol version.
const ProtocolVersion = "1.0"

// JSONRPCRequest is a JSON-RPC 2.0 request or notification.
type JSONRPCRequest struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      string                 `json:"id,omitempty"` // notifications carry no id
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// UnmarshalJSON allows the JSON-RPC id to be either string or number, and
// normalizes it to a string.
func (r *JSONRPCRequest) UnmarshalJSON(data []byte) error {
	var tmp struct {
		JSONRPC string                 `json:"jsonrpc"`
		ID      interface{}            `json:"id,omitempty"`
		Method  string                 `json:"method"`
		Params  map[string]interface{} `json:"params,omitempty"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	r.JSONRPC = tmp.JSONRPC
	r.Method = tmp.Method
	r.Params = tmp.Params

	switch v := tmp.ID.(type) {
	case nil:
		r.ID = ""
	case string:
		r.ID = v
	case float64:
		// JSON numbers are float64; preserve integer-like values as integers.
		if math.Trunc(v) == v {
			r.ID = strconv.FormatInt(int64(v), 10)
		} else {
			r.ID = strconv.FormatFloat(v, 'f', -1, 64)
		}
	default:
		return fmt.Errorf("invalid id type: %T", tmp.ID)
	}

	return nil
}

// JSONRPCResponse is a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError is the error member of a response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// InvalidParamsError indicates request params are invalid.
type InvalidParamsError struct {
	Message string
}

func (e *InvalidParamsError) Error() string {
	return e.Message
}

// MethodNotFoundError is returned when a method is not registered.
type MethodNotFoundError struct {
	Method string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method not found: %s", e.Method)
}

// Error codes
const (
	ErrorParseError     = -32700
	ErrorInvalidRequest = -32600
	ErrorMethodNotFound = -32601
	ErrorInvalidParams  = -32602
	ErrorInternalError  = -32603
)

// NewErrorResponse creates an error response.
func NewErrorResponse(id string, code int, message string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &RPCError{
			Code:    code,
			Message: message,
		},
	}
}

// NewSuccessResponse creates a success response.
func NewSuccessResponse(id string, result interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
}

// NewNotification creates a server-initiated notification.
func NewNotification(method string, params map[string]interface{}) *JSONRPCRequest {
	return &JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	}
}

// MethodHandler handles one registered method for a connection.
type MethodHandler func(connID string, params map[string]interface{}) (interface{}, error)

// MethodRegistry maps method names to handlers.
type MethodRegistry struct {
	methods map[string]MethodHandler
}

// NewMethodRegistry creates an empty registry.
func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{
		methods: make(map[string]MethodHandler),
	}
}

// Register adds a method.
func (r *MethodRegistry) Register(method string, handler MethodHandler) {
	r.methods[method] = handler
}

// Call dispatches a method.
func (r *MethodRegistry) Call(method string, connID string, params map[string]interface{}) (interface{}, error) {
	handler, ok := r.methods[method]
	if !ok {
		return nil, &MethodNotFoundError{Method: method}
	}
	if handler == nil {
		return nil, fmt.Errorf("nil handler for method: %s", method)
	}
	return handler(connID, params)
}

// ParseRequest decodes and validates a JSON-RPC request.
func ParseRequest(data []byte) (*JSONRPCRequest, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}

	if req.JSONRPC != "2.0" {
		return nil, fmt.Errorf("unsupported jsonrpc version: %s", req.JSONRPC)
	}

	if strings.TrimSpace(req.Method) == "" {
		return nil, fmt.Errorf("method is required")
	}

	return &req, nil
}

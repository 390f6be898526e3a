package gateway

import (
	"errors"
	"testing"
)

func TestParseRequestValidation(t *testing.T) {
	cases := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{name: "valid request", data: `{"jsonrpc":"2.0","id":"1","method":"health"}`, wantErr: false},
		{name: "notification without id", data: `{"jsonrpc":"2.0","method":"health"}`, wantErr: false},
		{name: "wrong version", data: `{"jsonrpc":"1.0","id":"1","method":"health"}`, wantErr: true},
		{name: "missing method", data: `{"jsonrpc":"2.0","id":"1"}`, wantErr: true},
		{name: "blank method", data: `{"jsonrpc":"2.0","id":"1","method":"  "}`, wantErr: true},
		{name: "not json", data: `nope`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tc.data))
			if tc.wantErr && err == nil {
				t.Fatalf("expected an error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRequestIDNormalization(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{name: "string id", data: `{"jsonrpc":"2.0","id":"abc","method":"m"}`, want: "abc"},
		{name: "integer id", data: `{"jsonrpc":"2.0","id":7,"method":"m"}`, want: "7"},
		{name: "float id", data: `{"jsonrpc":"2.0","id":1.5,"method":"m"}`, want: "1.5"},
		{name: "absent id", data: `{"jsonrpc":"2.0","method":"m"}`, want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tc.data))
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if req.ID != tc.want {
				t.Fatalf("expected id %q, got %q", tc.want, req.ID)
			}
		})
	}
}

func TestRequestIDInvalidType(t *testing.T) {
	if _, err := ParseRequest([]byte(`{"jsonrpc":"2.0","id":{"x":1},"method":"m"}`)); err == nil {
		t.Fatalf("expected an error for an object id")
	}
}

func TestMethodRegistryCall(t *testing.T) {
	reg := NewMethodRegistry()
	reg.Register("echo", func(connID string, params map[string]interface{}) (interface{}, error) {
		return params["v"], nil
	})

	result, err := reg.Call("echo", "c1", map[string]interface{}{"v": "x"})
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if result != "x" {
		t.Fatalf("expected x, got %v", result)
	}

	_, err = reg.Call("missing", "c1", nil)
	var mnf *MethodNotFoundError
	if !errors.As(err, &mnf) {
		t.Fatalf("expected MethodNotFoundError, got %v", err)
	}
}

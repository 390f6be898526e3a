package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smallnest/agentbridge/internal/logger"
	"github.com/smallnest/agentbridge/stream"
)

// Handler dispatches JSON-RPC methods to the mediation core. One handler
// serves every connection; the connection id is threaded through so
// stream subscriptions attach to the caller.
type Handler struct {
	registry *MethodRegistry
	svc      *stream.Service
	notifier *Notifier
	prefix   string
}

// NewHandler wires the gateway methods over a stream service.
func NewHandler(svc *stream.Service, notifier *Notifier, channelPrefix string) *Handler {
	h := &Handler{
		registry: NewMethodRegistry(),
		svc:      svc,
		notifier: notifier,
		prefix:   channelPrefix,
	}

	h.registerSystemMethods()
	h.registerAgentMethods()
	h.registerStreamMethods()

	return h
}

// HandleRequest dispatches one request and shapes the response.
func (h *Handler) HandleRequest(connID string, req *JSONRPCRequest) *JSONRPCResponse {
	if req == nil {
		return NewErrorResponse("", ErrorInvalidRequest, "nil request")
	}

	result, err := h.registry.Call(req.Method, connID, req.Params)
	if err != nil {
		logger.Error("method execution failed",
			zap.String("method", req.Method),
			zap.String("conn_id", connID),
			zap.Error(err))
		code := ErrorInternalError
		var mnf *MethodNotFoundError
		if errors.As(err, &mnf) {
			code = ErrorMethodNotFound
		}
		var ip *InvalidParamsError
		if errors.As(err, &ip) {
			code = ErrorInvalidParams
		}
		return NewErrorResponse(req.ID, code, err.Error())
	}

	return NewSuccessResponse(req.ID, result)
}

func (h *Handler) registerSystemMethods() {
	h.registry.Register("health", func(connID string, params map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
			"version":   ProtocolVersion,
		}, nil
	})
}

func (h *Handler) registerAgentMethods() {
	// agent.invoke - open a streaming session for a thread. The caller is
	// subscribed to the thread's event channel before the session starts
	// so no events are lost to a missing recipient.
	h.registry.Register("agent.invoke", func(connID string, params map[string]interface{}) (interface{}, error) {
		threadID, err := stringParam(params, "thread_id")
		if err != nil {
			return nil, err
		}
		message, err := stringParam(params, "message")
		if err != nil {
			return nil, err
		}

		channel := stream.ChannelFor(h.prefix, threadID)
		h.notifier.Subscribe(channel, connID)

		if err := h.svc.Invoke(context.Background(), threadID, message); err != nil {
			h.notifier.Unsubscribe(channel, connID)
			return nil, err
		}
		return map[string]interface{}{
			"thread_id": threadID,
			"channel":   channel,
		}, nil
	})

	// agent.resume - answer a pending interrupt. Failures surface here as
	// JSON-RPC errors, never as stream events.
	h.registry.Register("agent.resume", func(connID string, params map[string]interface{}) (interface{}, error) {
		threadID, err := stringParam(params, "thread_id")
		if err != nil {
			return nil, err
		}
		decision, err := decisionParam(params)
		if err != nil {
			return nil, err
		}

		if err := h.svc.Resume(threadID, decision); err != nil {
			return nil, err
		}
		return map[string]interface{}{"ok": true}, nil
	})

	// agent.cancel - signal cancellation; idempotent for unknown threads.
	h.registry.Register("agent.cancel", func(connID string, params map[string]interface{}) (interface{}, error) {
		threadID, err := stringParam(params, "thread_id")
		if err != nil {
			return nil, err
		}
		h.svc.Cancel(threadID)
		return map[string]interface{}{"ok": true}, nil
	})
}

func (h *Handler) registerStreamMethods() {
	h.registry.Register("stream.subscribe", func(connID string, params map[string]interface{}) (interface{}, error) {
		threadID, err := stringParam(params, "thread_id")
		if err != nil {
			return nil, err
		}
		channel := stream.ChannelFor(h.prefix, threadID)
		h.notifier.Subscribe(channel, connID)
		return map[string]interface{}{"channel": channel}, nil
	})

	h.registry.Register("stream.unsubscribe", func(connID string, params map[string]interface{}) (interface{}, error) {
		threadID, err := stringParam(params, "thread_id")
		if err != nil {
			return nil, err
		}
		channel := stream.ChannelFor(h.prefix, threadID)
		h.notifier.Unsubscribe(channel, connID)
		return map[string]interface{}{"channel": channel}, nil
	})
}

func stringParam(params map[string]interface{}, key string) (string, error) {
	v, ok := params[key].(string)
	if !ok || v == "" {
		return "", &InvalidParamsError{Message: fmt.Sprintf("%s parameter is required", key)}
	}
	return v, nil
}

func decisionParam(params map[string]interface{}) (stream.Decision, error) {
	raw, ok := params["decision"]
	if !ok {
		return stream.Decision{}, &InvalidParamsError{Message: "decision parameter is required"}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return stream.Decision{}, &InvalidParamsError{Message: "decision parameter is not serializable"}
	}
	var decision stream.Decision
	if err := json.Unmarshal(data, &decision); err != nil {
		return stream.Decision{}, &InvalidParamsError{Message: "decision parameter is malformed"}
	}

	switch decision.Type {
	case stream.DecisionApprove, stream.DecisionReject, stream.DecisionEdit:
		return decision, nil
	default:
		return stream.Decision{}, &InvalidParamsError{Message: fmt.Sprintf("unknown decision type: %s", decision.Type)}
	}
}

package mcp

import (
	"encoding/json"
	"fmt"
	"time"

	"changelens/internal/envelope"
	"changelens/internal/errors"
)

// handleMessage processes one incoming message and returns the response,
// or nil when none is due.
func (s *MCPServer) handleMessage(msg *MCPMessage) *MCPMessage {
	if msg.Jsonrpc != "2.0" {
		return NewErrorMessage(msg.Id, InvalidRequest, "Invalid request: jsonrpc must be \"2.0\"", nil)
	}

	switch {
	case msg.IsRequest():
		return s.handleRequest(msg)
	case msg.IsNotification():
		s.handleNotification(msg)
		return nil
	case msg.IsResponse():
		// The server never issues requests of its own.
		s.logger.Debug("Ignoring response from client",
			"id", msg.Id,
		)
		return nil
	}

	return NewErrorMessage(msg.Id, InvalidRequest, "Invalid message: not a request or notification", nil)
}

// handleRequest dispatches a JSON-RPC request by method
func (s *MCPServer) handleRequest(msg *MCPMessage) *MCPMessage {
	s.logger.Debug("Handling request",
		"method", msg.Method,
		"id", msg.Id,
	)

	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		if msg.Params != nil {
			return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: expected object", nil)
		}
		params = make(map[string]interface{})
	}

	switch msg.Method {
	case "initialize":
		return NewResultMessage(msg.Id, s.handleInitialize(params))
	case "ping":
		return NewResultMessage(msg.Id, map[string]interface{}{})
	case "tools/list":
		return NewResultMessage(msg.Id, map[string]interface{}{
			"tools": s.GetToolDefinitions(),
		})
	case "tools/call":
		result, err := s.handleCallTool(params)
		if err != nil {
			code := InternalError
			if errors.Is(err, errors.InvalidParameter) {
				code = InvalidParams
			}
			return NewErrorMessage(msg.Id, code, err.Error(), nil)
		}
		return NewResultMessage(msg.Id, result)
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}
}

// handleNotification handles a JSON-RPC notification
func (s *MCPServer) handleNotification(msg *MCPMessage) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("Client initialized")
	case "notifications/cancelled":
		// Tool calls run synchronously, so by the time this is read the
		// call has already been answered.
		s.logger.Debug("Cancellation received",
			"params", msg.Params,
		)
	default:
		s.logger.Debug("Unknown notification",
			"method", msg.Method,
		)
	}
}

// handleCallTool runs a tool. Tool failures become an error envelope inside
// a normal result; only protocol problems (bad name, unknown tool) are
// returned as errors.
func (s *MCPServer) handleCallTool(params map[string]interface{}) (interface{}, error) {
	toolName, ok := params["name"].(string)
	if !ok || toolName == "" {
		return nil, errors.NewInvalidParameterError("name", "tool name is required")
	}

	toolParams, ok := params["arguments"].(map[string]interface{})
	if !ok {
		toolParams = make(map[string]interface{})
	}

	handler, exists := s.tools[toolName]
	if !exists {
		return nil, errors.NewInvalidParameterError("name", fmt.Sprintf("unknown tool %q", toolName))
	}

	s.logger.Info("Calling tool",
		"tool", toolName,
		"params", toolParams,
	)

	start := time.Now()
	resp, err := handler(toolParams)
	if err != nil {
		s.logger.Warn("Tool failed",
			"tool", toolName,
			"code", errors.CodeOf(err),
			"error", err.Error(),
		)
		resp = envelope.Failure(err)
	} else {
		s.logger.Debug("Tool completed",
			"tool", toolName,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	return toolResult(resp)
}

// toolResult wraps an envelope as MCP text content
func toolResult(resp *envelope.Response) (interface{}, error) {
	jsonBytes, err := json.Marshal(resp)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to marshal response", err)
	}

	result := map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(jsonBytes),
			},
		},
	}
	if resp.Failed() {
		result["isError"] = true
	}
	return result, nil
}

package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageSize is the largest single line accepted on stdin (1MB).
const MaxMessageSize = 1024 * 1024

// readMessage reads one newline-delimited JSON-RPC message. A line that is
// not valid JSON yields an *MCPError with ParseError so the loop can answer
// and keep going; read failures end the loop.
func (s *MCPServer) readMessage() (*MCPMessage, error) {
	if s.scanner == nil {
		s.scanner = bufio.NewScanner(s.stdin)
		s.scanner.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
	}

	for {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("error reading from stdin: %w", err)
			}
			return nil, io.EOF
		}

		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		s.logger.Debug("Received message",
			"bytes", len(line),
		)

		var msg MCPMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, &MCPError{Code: ParseError, Message: fmt.Sprintf("Failed to parse message: %v", err)}
		}
		return &msg, nil
	}
}

// writeMessage writes one JSON-RPC message followed by a newline
func (s *MCPServer) writeMessage(msg *MCPMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshaling JSON-RPC message: %w", err)
	}

	s.logger.Debug("Sending message",
		"bytes", len(data),
	)

	data = append(data, '\n')
	if _, err := s.stdout.Write(data); err != nil {
		return fmt.Errorf("error writing to stdout: %w", err)
	}
	return nil
}

// writeError writes an error response
func (s *MCPServer) writeError(id interface{}, code int, message string) error {
	return s.writeMessage(NewErrorMessage(id, code, message, nil))
}

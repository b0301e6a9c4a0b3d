// Package mcp serves the change-analysis operations as MCP tools over
// newline-delimited JSON-RPC 2.0 on stdin/stdout.
package mcp

import (
	"bufio"
	stderrors "errors"
	"io"
	"log/slog"
	"os"

	"changelens/internal/changes"
)

// MCPServer is a single-repository tool server
type MCPServer struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	logger  *slog.Logger
	version string
	svc     *changes.Service
	tools   map[string]ToolHandler
}

// NewMCPServer creates a server bound to one service and registers every tool
func NewMCPServer(version string, svc *changes.Service, logger *slog.Logger) *MCPServer {
	server := &MCPServer{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		logger:  logger,
		version: version,
		svc:     svc,
		tools:   make(map[string]ToolHandler),
	}
	server.RegisterTools()
	return server
}

// Start runs the message loop until stdin is closed
func (s *MCPServer) Start() error {
	s.logger.Info("MCP server starting",
		"version", s.version,
		"repoRoot", s.svc.RepoRoot(),
		"tools", len(s.tools),
	)

	for {
		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("MCP server shutting down (EOF)")
				return nil
			}

			var perr *MCPError
			if stderrors.As(err, &perr) {
				s.logger.Warn("Discarding malformed message",
					"error", perr.Message,
				)
				if werr := s.writeError(nil, perr.Code, perr.Message); werr != nil {
					s.logger.Error("Error writing response",
						"error", werr.Error(),
					)
				}
				continue
			}

			s.logger.Error("Error reading message",
				"error", err.Error(),
			)
			return err
		}

		response := s.handleMessage(msg)
		if response == nil {
			continue
		}
		if err := s.writeMessage(response); err != nil {
			s.logger.Error("Error writing response",
				"error", err.Error(),
			)
		}
	}
}

// SetStdin sets the input stream (for testing)
func (s *MCPServer) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil
}

// SetStdout sets the output stream (for testing)
func (s *MCPServer) SetStdout(w io.Writer) {
	s.stdout = w
}

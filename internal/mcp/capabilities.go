package mcp

import "changelens/internal/version"

// ProtocolVersion is the MCP revision the server speaks
const ProtocolVersion = "2024-11-05"

// ServerCapabilities lists what the server offers
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability represents the tools capability
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ServerInfo identifies the server in the handshake
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the result of the initialize request
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

func (s *MCPServer) handleInitialize(params map[string]interface{}) *InitializeResult {
	s.logger.Info("MCP server initializing",
		"clientInfo", params["clientInfo"],
		"clientProtocol", params["protocolVersion"],
	)

	name, ver := version.ServerInfo()
	if s.version != "" {
		ver = s.version
	}

	// The tool set is fixed for the life of the process.
	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{ListChanged: false},
		},
		ServerInfo: ServerInfo{
			Name:    name,
			Version: ver,
		},
	}
}

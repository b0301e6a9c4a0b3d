package mcp

import "changelens/internal/envelope"

// Tool is a tool definition as listed by tools/list
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolHandler handles a tool call and returns an envelope response.
type ToolHandler func(params map[string]interface{}) (*envelope.Response, error)

var idsSchema = map[string]interface{}{
	"type":        "array",
	"items":       map[string]interface{}{"type": "string"},
	"description": "Change ids (e.g. \"change-1\") from getChanges. Omit for every current change.",
}

var thresholdSchema = map[string]interface{}{
	"type":        "number",
	"minimum":     0,
	"maximum":     1,
	"description": "Cosine similarity a change needs to join a group, in (0, 1]. Defaults to the configured grouping threshold.",
}

// GetToolDefinitions returns all tool definitions in a stable order
func (s *MCPServer) GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "getStatus",
			Description: "Report HEAD, the repository state id, working tree entries and the active embedding provider",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "getChanges",
			Description: "List the current uncommitted changes, one record per file ordered by path, with staged hunks before unstaged hunks. Ids are positional and only valid for the repository state reported in meta.provenance.repoStateId.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"ids": idsSchema,
				},
			},
		},
		{
			Name:        "exportPatch",
			Description: "Render the selected changes as unified diff text",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"ids": idsSchema,
				},
			},
		},
		{
			Name:        "getBlame",
			Description: "Attribute each line of a file to the commit and author that last changed it, optionally with an ownership summary per author",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "File path, relative to the repository root or absolute inside it",
					},
					"ref": map[string]interface{}{
						"type":        "string",
						"description": "Revision to blame at. Defaults to the working tree.",
					},
					"startLine": map[string]interface{}{
						"type":        "integer",
						"minimum":     1,
						"description": "First line (1-based, inclusive)",
					},
					"endLine": map[string]interface{}{
						"type":        "integer",
						"minimum":     1,
						"description": "Last line (1-based, inclusive)",
					},
					"summarize": map[string]interface{}{
						"type":        "boolean",
						"default":     false,
						"description": "Include per-author ownership shares",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "groupChanges",
			Description: "Cluster changes into groups of related edits by embedding similarity",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"ids":       idsSchema,
					"threshold": thresholdSchema,
				},
			},
		},
		{
			Name:        "planCommits",
			Description: "Propose one commit per group of related changes. Read-only: nothing is staged or committed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"threshold": thresholdSchema,
				},
			},
		},
		{
			Name:        "draftPullRequest",
			Description: "Draft a pull request title and body from the commits since base and the current changes",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"base": map[string]interface{}{
						"type":        "string",
						"description": "Base branch or revision. Omit to use only the recent history of HEAD.",
					},
				},
			},
		},
	}
}

// RegisterTools registers all tool handlers
func (s *MCPServer) RegisterTools() {
	s.tools["getStatus"] = s.toolGetStatus
	s.tools["getChanges"] = s.toolGetChanges
	s.tools["exportPatch"] = s.toolExportPatch
	s.tools["getBlame"] = s.toolGetBlame
	s.tools["groupChanges"] = s.toolGroupChanges
	s.tools["planCommits"] = s.toolPlanCommits
	s.tools["draftPullRequest"] = s.toolDraftPullRequest
}

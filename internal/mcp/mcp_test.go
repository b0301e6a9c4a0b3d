package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"reflect"
	"strings"
	"testing"

	"changelens/internal/changes"
	"changelens/internal/config"
	"changelens/internal/embedding"
	"changelens/internal/envelope"
	"changelens/internal/errors"
	"changelens/internal/gitcli"
	"changelens/internal/slogutil"
	"changelens/internal/version"
)

const testStaged = `diff --git a/api/handler.go b/api/handler.go
index 1111111..2222222 100644
--- a/api/handler.go
+++ b/api/handler.go
@@ -10,3 +10,4 @@ func Handle() {
     ctx := r.Context()
+    log.Info("handling")
     serve(ctx)
 }
`

const testUnstaged = `diff --git a/README.md b/README.md
index 3333333..4444444 100644
--- a/README.md
+++ b/README.md
@@ -1,2 +1,2 @@
 # Project
-Old intro.
+New intro.
`

const testBlame = "1111111111111111111111111111111111111111 1 1 1\n" +
	"author Ada\n" +
	"author-mail <ada@example.com>\n" +
	"author-time 1700000000\n" +
	"summary first\n" +
	"\t# Project\n"

type fakeGit struct {
	head, staged, unstaged string
	blame                  string
	commits                []gitcli.Commit
	err                    error
}

func (f *fakeGit) HeadCommit(context.Context) (string, error)     { return f.head, f.err }
func (f *fakeGit) StagedDiff(context.Context) (string, error)     { return f.staged, nil }
func (f *fakeGit) UnstagedDiff(context.Context) (string, error)   { return f.unstaged, nil }
func (f *fakeGit) UntrackedFiles(context.Context) (string, error) { return "", nil }
func (f *fakeGit) Status(context.Context) ([]gitcli.StatusEntry, error) {
	return []gitcli.StatusEntry{
		{Index: "M", WorkTree: " ", Path: "api/handler.go"},
		{Index: " ", WorkTree: "M", Path: "README.md"},
	}, nil
}
func (f *fakeGit) Blame(context.Context, string, gitcli.BlameOptions) (string, error) {
	return f.blame, nil
}
func (f *fakeGit) Log(context.Context, string, int) ([]gitcli.Commit, error) {
	return f.commits, nil
}

func newTestGit() *fakeGit {
	return &fakeGit{
		head:     strings.Repeat("a", 40),
		staged:   testStaged,
		unstaged: testUnstaged,
		blame:    testBlame,
		commits:  []gitcli.Commit{{SHA: strings.Repeat("b", 40), Subject: "Log requests"}},
	}
}

// newTestMCPServer creates a server over a fake repository
func newTestMCPServer(t *testing.T, git changes.Git, provider embedding.Provider) *MCPServer {
	t.Helper()
	logger := slogutil.NewDiscardLogger()
	svc := changes.NewService("/repo", git, provider, config.DefaultConfig(), logger)
	return NewMCPServer(version.Version, svc, logger)
}

// sendRequest sends a request and returns the response
func sendRequest(t *testing.T, server *MCPServer, method string, id int, params interface{}) *MCPMessage {
	t.Helper()

	request := MCPMessage{
		Jsonrpc: "2.0",
		Id:      id,
		Method:  method,
		Params:  params,
	}
	requestBytes, err := json.Marshal(request)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	requestBytes = append(requestBytes, '\n')

	server.SetStdin(bytes.NewReader(requestBytes))
	server.SetStdout(&bytes.Buffer{})

	msg, err := server.readMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	return server.handleMessage(msg)
}

type toolEnvelope struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		RequestID  string              `json:"requestId"`
		Provenance envelope.Provenance `json:"provenance"`
	} `json:"meta"`
	Warnings           []envelope.Warning       `json:"warnings"`
	Error              *string                  `json:"error"`
	ErrorCode          string                   `json:"errorCode"`
	ErrorDetails       map[string]interface{}   `json:"errorDetails"`
	SuggestedNextCalls []envelope.SuggestedCall `json:"suggestedNextCalls"`
}

// callTool runs tools/call and decodes the envelope from the text content
func callTool(t *testing.T, server *MCPServer, name string, args map[string]interface{}) (toolEnvelope, bool) {
	t.Helper()

	resp := sendRequest(t, server, "tools/call", 1, map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if resp.Error != nil {
		t.Fatalf("tools/call %s returned protocol error: %v", name, resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result is %T, want map", resp.Result)
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content = %#v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Fatalf("content type = %v, want text", content[0]["type"])
	}

	var env toolEnvelope
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), &env); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}
	isError, _ := result["isError"].(bool)
	return env, isError
}

func TestMCPServerCreation(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), nil)

	defs := server.GetToolDefinitions()
	if len(server.tools) != len(defs) {
		t.Fatalf("registered %d handlers for %d definitions", len(server.tools), len(defs))
	}
	for _, d := range defs {
		if _, ok := server.tools[d.Name]; !ok {
			t.Errorf("tool %s has no handler", d.Name)
		}
		if d.InputSchema["type"] != "object" {
			t.Errorf("tool %s schema type = %v", d.Name, d.InputSchema["type"])
		}
	}
}

func TestInitializeMethod(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), nil)

	resp := sendRequest(t, server, "initialize", 1, map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"clientInfo":      map[string]interface{}{"name": "test-client", "version": "1.0.0"},
	})
	if resp.Error != nil {
		t.Fatalf("initialize failed: %v", resp.Error)
	}
	result, ok := resp.Result.(*InitializeResult)
	if !ok {
		t.Fatalf("result is %T", resp.Result)
	}
	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("ProtocolVersion = %q", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "changelens" || result.ServerInfo.Version != version.Version {
		t.Errorf("ServerInfo = %+v", result.ServerInfo)
	}
	if result.Capabilities.Tools == nil {
		t.Error("tools capability missing")
	}
	// Response ids keep the JSON-decoded type.
	if resp.Id != float64(1) {
		t.Errorf("Id = %#v, want 1", resp.Id)
	}
}

func TestToolsListMethod(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), nil)

	resp := sendRequest(t, server, "tools/list", 2, nil)
	if resp.Error != nil {
		t.Fatalf("tools/list failed: %v", resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	tools := result["tools"].([]Tool)

	var names []string
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	want := []string{"getStatus", "getChanges", "exportPatch", "getBlame", "groupChanges", "planCommits", "draftPullRequest"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("tools = %v, want %v", names, want)
	}
}

func TestUnknownMethod(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), nil)

	resp := sendRequest(t, server, "resources/list", 3, nil)
	if resp.Error == nil || resp.Error.Code != MethodNotFound {
		t.Fatalf("Error = %+v, want MethodNotFound", resp.Error)
	}
}

func TestToolCallProtocolErrors(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), nil)

	tests := []struct {
		name   string
		params interface{}
		code   int
	}{
		{"missing name", map[string]interface{}{}, InvalidParams},
		{"unknown tool", map[string]interface{}{"name": "commitAll"}, InvalidParams},
		{"params not an object", []interface{}{"getChanges"}, InvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := sendRequest(t, server, "tools/call", 4, tt.params)
			if resp.Error == nil || resp.Error.Code != tt.code {
				t.Fatalf("Error = %+v, want code %d", resp.Error, tt.code)
			}
		})
	}
}

func TestToolGetChanges(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), nil)

	env, isError := callTool(t, server, "getChanges", nil)
	if isError || env.Error != nil {
		t.Fatalf("unexpected error: %v", *env.Error)
	}

	var data changes.ChangesResult
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Total != 2 || len(data.Changes) != 2 {
		t.Fatalf("got %d of %d changes", len(data.Changes), data.Total)
	}
	// Bytewise path order: "R" sorts before "a".
	if data.Changes[0].ID != "change-1" || data.Changes[0].FilePath != "README.md" {
		t.Errorf("first change = %s %s", data.Changes[0].ID, data.Changes[0].FilePath)
	}
	if data.Changes[1].ID != "change-2" || data.Changes[1].FilePath != "api/handler.go" {
		t.Errorf("second change = %s %s", data.Changes[1].ID, data.Changes[1].FilePath)
	}

	p := env.Meta.Provenance
	if p.HeadCommit != strings.Repeat("a", 40) || p.RepoStateID == "" || !p.Dirty {
		t.Errorf("provenance = %+v", p)
	}
	if !reflect.DeepEqual(p.Sources, []string{"git"}) {
		t.Errorf("sources = %v", p.Sources)
	}
	if env.Meta.RequestID == "" {
		t.Error("requestId missing")
	}
	if len(env.SuggestedNextCalls) != 1 || env.SuggestedNextCalls[0].Tool != "groupChanges" {
		t.Errorf("suggestions = %+v", env.SuggestedNextCalls)
	}
}

func TestToolGetChangesUnknownIDs(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), nil)

	env, isError := callTool(t, server, "getChanges", map[string]interface{}{
		"ids": []interface{}{"change-1", "change-5", "bogus"},
	})
	if !isError || env.Error == nil {
		t.Fatal("expected an error envelope")
	}
	if env.ErrorCode != string(errors.UnknownChangeIDs) {
		t.Errorf("errorCode = %q", env.ErrorCode)
	}
	if string(env.Data) != "null" {
		t.Errorf("data = %s, want null", env.Data)
	}
	got := env.ErrorDetails["unknownIds"]
	want := []interface{}{"change-5", "bogus"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unknownIds = %v, want %v", got, want)
	}
}

func TestToolParameterErrors(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), embedding.NewLocal(64))

	tests := []struct {
		tool string
		args map[string]interface{}
	}{
		{"getChanges", map[string]interface{}{"ids": "change-1"}},
		{"getChanges", map[string]interface{}{"ids": []interface{}{1}}},
		{"getBlame", map[string]interface{}{}},
		{"getBlame", map[string]interface{}{"path": "README.md", "startLine": 1.5}},
		{"getBlame", map[string]interface{}{"path": "README.md", "summarize": "yes"}},
		{"groupChanges", map[string]interface{}{"threshold": 0.0}},
		{"groupChanges", map[string]interface{}{"threshold": 1.5}},
		{"planCommits", map[string]interface{}{"threshold": "high"}},
		{"draftPullRequest", map[string]interface{}{"base": 7}},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			env, isError := callTool(t, server, tt.tool, tt.args)
			if !isError {
				t.Fatalf("%s(%v) succeeded", tt.tool, tt.args)
			}
			if env.ErrorCode != string(errors.InvalidParameter) {
				t.Errorf("errorCode = %q, want INVALID_PARAMETER", env.ErrorCode)
			}
		})
	}
}

func TestToolExportPatch(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), nil)

	env, isError := callTool(t, server, "exportPatch", map[string]interface{}{
		"ids": []interface{}{"change-1"},
	})
	if isError {
		t.Fatalf("unexpected error: %s", *env.Error)
	}

	var data changes.PatchResult
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(data.Files, []string{"README.md"}) {
		t.Errorf("files = %v", data.Files)
	}
	if !strings.Contains(data.Patch, "+New intro.") || strings.Contains(data.Patch, "handler.go") {
		t.Errorf("patch = %q", data.Patch)
	}
}

func TestToolGetBlame(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), nil)

	env, isError := callTool(t, server, "getBlame", map[string]interface{}{
		"path":      "README.md",
		"startLine": float64(1),
		"endLine":   float64(1),
		"summarize": true,
	})
	if isError {
		t.Fatalf("unexpected error: %s", *env.Error)
	}

	var data changes.BlameResult
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Lines) != 1 || data.Lines[0].Commit.AuthorName != "Ada" {
		t.Fatalf("lines = %+v", data.Lines)
	}
	if data.Ownership == nil || len(data.Ownership.Contributors) != 1 {
		t.Errorf("ownership = %+v", data.Ownership)
	}
}

func TestToolGroupChanges(t *testing.T) {
	provider := embedding.NewLocal(64)
	server := newTestMCPServer(t, newTestGit(), provider)

	env, isError := callTool(t, server, "groupChanges", map[string]interface{}{"threshold": 0.99})
	if isError {
		t.Fatalf("unexpected error: %s", *env.Error)
	}

	var data changes.GroupResult
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Threshold != 0.99 {
		t.Errorf("threshold = %v", data.Threshold)
	}
	var ids []string
	for _, g := range data.Groups {
		ids = append(ids, g.ChangeIDs...)
	}
	if len(ids) != 2 {
		t.Errorf("grouped ids = %v, want both changes exactly once", ids)
	}

	wantSources := []string{"git", "embedding:" + provider.Model()}
	if !reflect.DeepEqual(env.Meta.Provenance.Sources, wantSources) {
		t.Errorf("sources = %v, want %v", env.Meta.Provenance.Sources, wantSources)
	}
}

func TestToolGroupChangesWithoutProvider(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), nil)

	env, isError := callTool(t, server, "groupChanges", nil)
	if !isError || env.ErrorCode != string(errors.EmbeddingFailed) {
		t.Fatalf("errorCode = %q, want EMBEDDING_FAILED", env.ErrorCode)
	}
}

func TestToolPlanAndDraft(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), embedding.NewLocal(64))

	env, isError := callTool(t, server, "planCommits", nil)
	if isError {
		t.Fatalf("planCommits: %s", *env.Error)
	}
	var plan changes.PlanResult
	if err := json.Unmarshal(env.Data, &plan); err != nil {
		t.Fatal(err)
	}
	if len(plan.Commits) == 0 {
		t.Error("no commits planned")
	}
	if plan.Threshold != config.DefaultConfig().Grouping.Threshold {
		t.Errorf("threshold = %v, want configured default", plan.Threshold)
	}

	env, isError = callTool(t, server, "draftPullRequest", map[string]interface{}{"base": "main"})
	if isError {
		t.Fatalf("draftPullRequest: %s", *env.Error)
	}
	var pr changes.PullRequestResult
	if err := json.Unmarshal(env.Data, &pr); err != nil {
		t.Fatal(err)
	}
	if pr.Draft.Title != "Log requests" || pr.Draft.Base != "main" {
		t.Errorf("draft = %+v", pr.Draft)
	}
}

func TestToolGetStatus(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), nil)

	env, isError := callTool(t, server, "getStatus", nil)
	if isError {
		t.Fatalf("unexpected error: %s", *env.Error)
	}
	var data changes.StatusResult
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.ChangeCount != 2 || data.StagedFiles != 1 || data.RepoRoot != "/repo" {
		t.Errorf("status = %+v", data)
	}
}

func TestToolGitFailure(t *testing.T) {
	git := newTestGit()
	git.err = errors.New(errors.NotARepository, "not a git repository", nil)
	server := newTestMCPServer(t, git, nil)

	env, isError := callTool(t, server, "getChanges", nil)
	if !isError || env.ErrorCode != string(errors.NotARepository) {
		t.Fatalf("errorCode = %q, want NOT_A_REPOSITORY", env.ErrorCode)
	}
	if env.Error == nil || *env.Error != "not a git repository" {
		t.Errorf("error = %v", env.Error)
	}
}

func TestStartLoop(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), nil)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`not json`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	server.SetStdin(strings.NewReader(input))
	server.SetStdout(&out)

	if err := server.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d responses, want 3:\n%s", len(lines), out.String())
	}

	var parseErr MCPMessage
	if err := json.Unmarshal([]byte(lines[1]), &parseErr); err != nil {
		t.Fatal(err)
	}
	if parseErr.Error == nil || parseErr.Error.Code != ParseError || parseErr.Id != nil {
		t.Errorf("parse error response = %s", lines[1])
	}

	var list struct {
		Id     int `json:"id"`
		Result struct {
			Tools []Tool `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(lines[2]), &list); err != nil {
		t.Fatal(err)
	}
	if list.Id != 2 || len(list.Result.Tools) != 7 {
		t.Errorf("tools/list response = %s", lines[2])
	}
}

func TestStartEOF(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), nil)
	server.SetStdin(strings.NewReader(""))
	server.SetStdout(io.Discard)

	if err := server.Start(); err != nil {
		t.Errorf("Start() on empty input = %v, want nil", err)
	}
}

func TestMCPMessageTypes(t *testing.T) {
	tests := []struct {
		name                      string
		msg                       MCPMessage
		request, notify, response bool
	}{
		{"request", MCPMessage{Id: 1, Method: "tools/list"}, true, false, false},
		{"notification", MCPMessage{Method: "notifications/initialized"}, false, true, false},
		{"result", MCPMessage{Id: 1, Result: map[string]interface{}{}}, false, false, true},
		{"error", MCPMessage{Id: 1, Error: &MCPError{Code: InternalError}}, false, false, true},
		{"empty", MCPMessage{}, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.IsRequest(); got != tt.request {
				t.Errorf("IsRequest() = %v", got)
			}
			if got := tt.msg.IsNotification(); got != tt.notify {
				t.Errorf("IsNotification() = %v", got)
			}
			if got := tt.msg.IsResponse(); got != tt.response {
				t.Errorf("IsResponse() = %v", got)
			}
		})
	}
}

func TestHandleMessageRejectsWrongVersion(t *testing.T) {
	server := newTestMCPServer(t, newTestGit(), nil)

	resp := server.handleMessage(&MCPMessage{Jsonrpc: "1.0", Id: 9, Method: "tools/list"})
	if resp == nil || resp.Error == nil || resp.Error.Code != InvalidRequest {
		t.Fatalf("response = %+v, want InvalidRequest", resp)
	}
}

func TestParamHelpers(t *testing.T) {
	params := map[string]interface{}{
		"s":     "x",
		"n":     float64(3),
		"frac":  2.5,
		"b":     true,
		"list":  []interface{}{"a", "b"},
		"null":  nil,
		"wrong": map[string]interface{}{},
	}

	if v, ok, err := stringParam(params, "s"); v != "x" || !ok || err != nil {
		t.Errorf("stringParam = %q %v %v", v, ok, err)
	}
	if _, ok, err := stringParam(params, "null"); ok || err != nil {
		t.Errorf("stringParam(null) = %v %v", ok, err)
	}
	if v, ok, err := intParam(params, "n"); v != 3 || !ok || err != nil {
		t.Errorf("intParam = %d %v %v", v, ok, err)
	}
	if _, _, err := intParam(params, "frac"); !errors.Is(err, errors.InvalidParameter) {
		t.Errorf("intParam(2.5) err = %v", err)
	}
	if v, ok, err := floatParam(params, "frac"); v != 2.5 || !ok || err != nil {
		t.Errorf("floatParam = %v %v %v", v, ok, err)
	}
	if v, err := boolParam(params, "b"); !v || err != nil {
		t.Errorf("boolParam = %v %v", v, err)
	}
	if v, err := boolParam(params, "missing"); v || err != nil {
		t.Errorf("boolParam(missing) = %v %v", v, err)
	}
	if v, err := stringSliceParam(params, "list"); !reflect.DeepEqual(v, []string{"a", "b"}) || err != nil {
		t.Errorf("stringSliceParam = %v %v", v, err)
	}
	if _, err := stringSliceParam(params, "wrong"); !errors.Is(err, errors.InvalidParameter) {
		t.Errorf("stringSliceParam(wrong) err = %v", err)
	}
}

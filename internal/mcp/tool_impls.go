package mcp

import (
	"context"
	"fmt"
	"math"

	"changelens/internal/changes"
	"changelens/internal/envelope"
	"changelens/internal/errors"
)

// toolGetStatus implements the getStatus tool
func (s *MCPServer) toolGetStatus(params map[string]interface{}) (*envelope.Response, error) {
	result, err := s.svc.Status(context.Background())
	if err != nil {
		return nil, err
	}

	resp := NewToolResponse().
		Data(result).
		WithState(result.State)
	if result.ChangeCount > 0 {
		resp.Suggest("getChanges", nil, fmt.Sprintf("%d uncommitted changes", result.ChangeCount))
	}
	return resp.Build(), nil
}

// toolGetChanges implements the getChanges tool
func (s *MCPServer) toolGetChanges(params map[string]interface{}) (*envelope.Response, error) {
	ids, err := stringSliceParam(params, "ids")
	if err != nil {
		return nil, err
	}

	result, err := s.svc.Changes(context.Background(), ids)
	if err != nil {
		return nil, err
	}

	resp := NewToolResponse().
		Data(result).
		WithState(result.State)
	if result.Total == 0 {
		resp.Warning("CLEAN_WORKTREE", "no staged or unstaged changes")
	}
	if len(result.Changes) > 1 {
		var next map[string]interface{}
		if len(ids) > 0 {
			next = map[string]interface{}{"ids": ids}
		}
		resp.Suggest("groupChanges", next, "cluster these changes into related groups")
	}
	return resp.Build(), nil
}

// toolExportPatch implements the exportPatch tool
func (s *MCPServer) toolExportPatch(params map[string]interface{}) (*envelope.Response, error) {
	ids, err := stringSliceParam(params, "ids")
	if err != nil {
		return nil, err
	}

	result, err := s.svc.Patch(context.Background(), ids)
	if err != nil {
		return nil, err
	}

	return NewToolResponse().
		Data(result).
		WithState(result.State).
		Build(), nil
}

// toolGetBlame implements the getBlame tool
func (s *MCPServer) toolGetBlame(params map[string]interface{}) (*envelope.Response, error) {
	path, ok, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	if !ok || path == "" {
		return nil, errors.NewInvalidParameterError("path", "is required")
	}
	ref, _, err := stringParam(params, "ref")
	if err != nil {
		return nil, err
	}
	startLine, _, err := intParam(params, "startLine")
	if err != nil {
		return nil, err
	}
	endLine, _, err := intParam(params, "endLine")
	if err != nil {
		return nil, err
	}
	summarize, err := boolParam(params, "summarize")
	if err != nil {
		return nil, err
	}

	result, err := s.svc.Blame(context.Background(), changes.BlameOptions{
		Path:      path,
		Ref:       ref,
		StartLine: startLine,
		EndLine:   endLine,
		Summarize: summarize,
	})
	if err != nil {
		return nil, err
	}

	resp := NewToolResponse().
		Data(result).
		WithState(nil, "git")
	if len(result.Lines) == 0 {
		resp.Warning("EMPTY_FILE", "no lines attributed")
	}
	return resp.Build(), nil
}

// toolGroupChanges implements the groupChanges tool
func (s *MCPServer) toolGroupChanges(params map[string]interface{}) (*envelope.Response, error) {
	ids, err := stringSliceParam(params, "ids")
	if err != nil {
		return nil, err
	}
	threshold, err := thresholdParam(params)
	if err != nil {
		return nil, err
	}

	result, err := s.svc.Group(context.Background(), ids, threshold)
	if err != nil {
		return nil, err
	}

	resp := NewToolResponse().
		Data(result).
		WithState(result.State, sources(result.Model)...)
	if len(result.Groups) > 0 {
		resp.Suggest("planCommits", map[string]interface{}{"threshold": result.Threshold}, "propose one commit per group")
	}
	return resp.Build(), nil
}

// toolPlanCommits implements the planCommits tool
func (s *MCPServer) toolPlanCommits(params map[string]interface{}) (*envelope.Response, error) {
	threshold, err := thresholdParam(params)
	if err != nil {
		return nil, err
	}

	result, err := s.svc.PlanCommits(context.Background(), threshold)
	if err != nil {
		return nil, err
	}

	resp := NewToolResponse().
		Data(result).
		WithState(result.State, sources(s.svc.Model())...)
	if len(result.Commits) == 0 {
		resp.Warning("CLEAN_WORKTREE", "nothing to commit")
	}
	return resp.Build(), nil
}

// toolDraftPullRequest implements the draftPullRequest tool
func (s *MCPServer) toolDraftPullRequest(params map[string]interface{}) (*envelope.Response, error) {
	base, _, err := stringParam(params, "base")
	if err != nil {
		return nil, err
	}

	result, err := s.svc.DraftPullRequest(context.Background(), base)
	if err != nil {
		return nil, err
	}

	return NewToolResponse().
		Data(result).
		WithState(result.State).
		Build(), nil
}

// thresholdParam reads an optional threshold. Zero is returned when absent
// so the service applies the configured default.
func thresholdParam(params map[string]interface{}) (float64, error) {
	threshold, ok, err := floatParam(params, "threshold")
	if err != nil || !ok {
		return 0, err
	}
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return 0, errors.NewInvalidParameterError("threshold", fmt.Sprintf("must be in (0, 1], got %v", threshold))
	}
	return threshold, nil
}

func sources(model string) []string {
	if model == "" {
		return []string{"git"}
	}
	return []string{"git", "embedding:" + model}
}

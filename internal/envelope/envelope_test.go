package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"changelens/internal/errors"
)

func TestBuilderBasic(t *testing.T) {
	resp := New().
		Data(map[string]string{"key": "value"}).
		Build()

	if resp.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %q, want %q", resp.SchemaVersion, CurrentSchemaVersion)
	}
	data, ok := resp.Data.(map[string]string)
	if !ok {
		t.Fatalf("Data type = %T, want map[string]string", resp.Data)
	}
	if data["key"] != "value" {
		t.Errorf("Data[key] = %q, want %q", data["key"], "value")
	}
	if resp.Failed() {
		t.Error("response without error should not be failed")
	}
}

func TestBuilderRequestID(t *testing.T) {
	a := New().Build()
	b := New().Build()

	if a.Meta == nil || len(a.Meta.RequestID) != 36 {
		t.Fatalf("expected a uuid request id, got %+v", a.Meta)
	}
	if a.Meta.RequestID == b.Meta.RequestID {
		t.Error("request ids should be unique per response")
	}
}

func TestBuilderProvenance(t *testing.T) {
	resp := New().
		Provenance(&Provenance{Sources: []string{"git"}, RepoStateID: "abc", Dirty: true}).
		Build()

	p := resp.Meta.Provenance
	if p == nil || p.RepoStateID != "abc" || !p.Dirty || p.Sources[0] != "git" {
		t.Errorf("Provenance = %+v", p)
	}
}

func TestBuilderWarning(t *testing.T) {
	resp := New().
		WarningWithCode("W000", "first warning").
		WarningWithCode("W001", "coded warning").
		Build()

	if len(resp.Warnings) != 2 {
		t.Fatalf("Warnings count = %d, want 2", len(resp.Warnings))
	}
	if resp.Warnings[0].Message != "first warning" || resp.Warnings[0].Code != "W000" {
		t.Errorf("Warnings[0] = %+v", resp.Warnings[0])
	}
	if resp.Warnings[1].Code != "W001" || resp.Warnings[1].Message != "coded warning" {
		t.Errorf("Warnings[1] = %+v", resp.Warnings[1])
	}
}

func TestBuilderError(t *testing.T) {
	resp := New().Data("ok").Error(nil).Build()
	if resp.Error != nil || resp.Data != "ok" {
		t.Error("nil error should leave the response untouched")
	}

	resp = New().Data("partial").Error(fmt.Errorf("boom")).Build()
	if resp.Error == nil || *resp.Error != "boom" {
		t.Fatalf("Error = %v, want boom", resp.Error)
	}
	if resp.ErrorCode != string(errors.InternalError) {
		t.Errorf("ErrorCode = %q, want INTERNAL_ERROR", resp.ErrorCode)
	}
	if resp.Data != nil {
		t.Error("a failed response must not carry a partial payload")
	}
}

func TestBuilderTypedError(t *testing.T) {
	err := errors.NewUnknownChangeIDsError([]string{"change-7", "change-9"})
	resp := Failure(fmt.Errorf("resolve: %w", err))

	if resp.ErrorCode != string(errors.UnknownChangeIDs) {
		t.Errorf("ErrorCode = %q", resp.ErrorCode)
	}
	if !strings.Contains(*resp.Error, "change-7, change-9") {
		t.Errorf("Error = %q", *resp.Error)
	}
	if strings.HasPrefix(*resp.Error, "[") {
		t.Errorf("envelope message should not repeat the code prefix: %q", *resp.Error)
	}

	raw, jerr := json.Marshal(resp)
	if jerr != nil {
		t.Fatal(jerr)
	}
	if !strings.Contains(string(raw), `"unknownIds":["change-7","change-9"]`) {
		t.Errorf("details missing from JSON: %s", raw)
	}
}

func TestBuilderSuggest(t *testing.T) {
	resp := New().
		Suggest("getChanges", nil, "refresh ids").
		Suggest("groupChanges", map[string]interface{}{"threshold": 0.7}, "").
		Build()

	if len(resp.SuggestedNextCalls) != 2 || resp.SuggestedNextCalls[0].Tool != "getChanges" {
		t.Errorf("SuggestedNextCalls = %+v", resp.SuggestedNextCalls)
	}

	failed := New().Suggest("getChanges", nil, "").Error(fmt.Errorf("x")).Build()
	if len(failed.SuggestedNextCalls) != 0 {
		t.Error("failures should not suggest follow-ups")
	}
}

func TestResponseJSONShape(t *testing.T) {
	raw, err := json.Marshal(Operational([]int{1}))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"schemaVersion", "data", "meta"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing %q in %s", key, raw)
		}
	}
	for _, key := range []string{"error", "errorCode", "warnings"} {
		if _, ok := m[key]; ok {
			t.Errorf("unexpected %q in successful response %s", key, raw)
		}
	}
}

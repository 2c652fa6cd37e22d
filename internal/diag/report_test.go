package diag

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestReportJSONIsDeterministic(t *testing.T) {
	report := New(TC001, "typecheck", "cannot unify Int with Bool").
		With("left", "Int").
		With("right", "Bool")

	first, err := report.ToJSON(true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := report.ToJSON(true)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("encoding differs between calls:\n%s\n%s", first, second)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(first), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["schema"] != Schema {
		t.Errorf("schema = %v, want %s", decoded["schema"], Schema)
	}
	if decoded["code"] != TC001 {
		t.Errorf("code = %v, want %s", decoded["code"], TC001)
	}
}

func TestReportErrorSurvivesWrapping(t *testing.T) {
	report := New(ENV001, "envfile", "unsupported schema")
	err := fmt.Errorf("loading: %w", WrapReport(report))

	extracted, ok := AsReport(err)
	if !ok {
		t.Fatal("report lost through wrapping")
	}
	if extracted.Code != ENV001 {
		t.Errorf("code = %s, want %s", extracted.Code, ENV001)
	}

	if _, ok := AsReport(errors.New("plain")); ok {
		t.Error("plain errors should not masquerade as reports")
	}
}

package gparse

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMarshalJSONGroovyTree(t *testing.T) {
	p := ParseCompilationUnit(strings.NewReader(`def greet = { name -> "Hi ${name}" }`), WithPositions())
	root := p.Finish()
	if root == nil {
		t.Fatal("Finish() returned nil")
	}

	data, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var decoded struct {
		Kind string `json:"kind"`
		Span *struct {
			Start struct {
				Line   int `json:"line"`
				Column int `json:"column"`
			} `json:"start"`
		} `json:"span"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if decoded.Kind != "CompilationUnit" {
		t.Errorf("root kind = %q, want CompilationUnit", decoded.Kind)
	}
	if decoded.Span == nil || decoded.Span.Start.Line != 1 {
		t.Errorf("root span = %+v, want start at line 1", decoded.Span)
	}

	for _, kind := range []string{`"ClosureExpr"`, `"GStringExpr"`, `"DefDecl"`, `"Parameter"`} {
		if !strings.Contains(string(data), kind) {
			t.Errorf("marshalled tree missing %s:\n%s", kind, data)
		}
	}
	if !strings.Contains(string(data), `"token":"greet"`) {
		t.Errorf("marshalled tree should carry token literals:\n%s", data)
	}
}

func TestMarshalJSONErrorNode(t *testing.T) {
	p := ParseCompilationUnit(strings.NewReader("def x = ]; def y = 2"))
	root := p.Finish()
	if root == nil {
		t.Fatal("Finish() returned nil")
	}

	data, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !strings.Contains(string(data), `"Error"`) {
		t.Errorf("marshalled tree should contain the Error node:\n%s", data)
	}
	if !strings.Contains(string(data), `"message":"expected an expression"`) {
		t.Errorf("marshalled tree should carry the error message:\n%s", data)
	}
}

package main

import (
	"strings"
	"testing"

	"sona/pkg/parser"
)

func TestAnalyzeProgram(t *testing.T) {
	input := `
import stack, util.strings as s
from math import max, min

func push_all(st, xs) {
  for x in xs {
    st.push(x)
  }
}

func _digest(data) {
  if data == null {
    return __native__sha256("")
  }
  return __native__sha256(data) + __native__sha512(data)
}

let handlers = {"hash": func(x) { return __native__blake2b_256(x) }}
`
	program, errs := parser.Parse(input)
	if len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	insights := analyzeProgram(program)

	var imports []string
	for _, imp := range insights.Imports {
		imports = append(imports, describeImport(imp))
	}
	expected := "import stack|import util.strings as s|from math import max, min"
	if got := strings.Join(imports, "|"); got != expected {
		t.Fatalf("imports wrong.\nexpected=%q\n     got=%q", expected, got)
	}

	if len(insights.Functions) != 2 || insights.Functions[0].Private || !insights.Functions[1].Private {
		t.Fatalf("functions wrong: %+v", insights.Functions)
	}
	if got := strings.Join(insights.Functions[0].Parameters, ","); got != "st,xs" {
		t.Fatalf("parameters wrong: %q", got)
	}

	natives := strings.Join(insights.Natives, ",")
	if natives != "__native__sha256,__native__sha512,__native__blake2b_256" {
		t.Fatalf("natives wrong: %q", natives)
	}
}

func TestOpenBlocks(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"let x = 1", 0},
		{"func f() {", 1},
		{"func f() {\n  if x {\n", 2},
		{"func f() {\n}\n", 0},
		{`let s = "{"`, 0},
		{"let d = {'}': 1", 1},
		{"# {\nlet x = [1,", 1},
		{"// {{\n", 0},
	}

	for _, tt := range tests {
		if got := openBlocks(tt.input); got != tt.expected {
			t.Errorf("openBlocks(%q) = %d, expected %d", tt.input, got, tt.expected)
		}
	}
}

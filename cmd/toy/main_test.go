package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	*cli
	out *bytes.Buffer
	err *bytes.Buffer
	dir string
}

func newHarness(t *testing.T, stdin string) *harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	var out, errOut bytes.Buffer
	return &harness{
		cli: &cli{stdin: strings.NewReader(stdin), stdout: &out, stderr: &errOut, cwd: dir},
		out: &out,
		err: &errOut,
		dir: dir,
	}
}

func (h *harness) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionAndUsage(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, 0, h.main([]string{"version"}))
	assert.Equal(t, "toy 0.1.0\n", h.out.String())

	assert.Equal(t, 1, h.main(nil))
	assert.Contains(t, h.err.String(), "usage: toy")

	assert.Equal(t, 1, h.main([]string{"frobnicate"}))
	assert.Contains(t, h.err.String(), "Unknown command: frobnicate")
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		code   int
		stdout string
		stderr string
	}{
		{"ok", `print 1 + 1;`, 0, "2\n", ""},
		{"parse", `var = 1;`, 2, "", "E_PARSE"},
		{"resolve", `return 1;`, 2, "", "E_RESOLVE"},
		{"runtime", `print 1 / 0;`, 4, "", "division by zero"},
		{"denied", `import "IO";`, 3, "", "E_DENIED"},
		{"assert", `print "a"; assert false, "nope";`, 5, "a\n", "E_ASSERT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")
			path := h.write(t, "prog.toy", tt.src)
			assert.Equal(t, tt.code, h.main([]string{"run", path}))
			assert.Equal(t, tt.stdout, h.out.String())
			assert.Contains(t, h.err.String(), tt.stderr)
		})
	}
}

func TestRunFromStdin(t *testing.T) {
	h := newHarness(t, `print "from stdin";`)
	assert.Equal(t, 0, h.main([]string{"run", "-"}))
	assert.Equal(t, "from stdin\n", h.out.String())
}

func TestRunPrettyDiagnostics(t *testing.T) {
	h := newHarness(t, "")
	path := h.write(t, "prog.toy", "print 1;\nbreak;\n")
	assert.Equal(t, 2, h.main([]string{"run", path, "--pretty"}))
	assert.Equal(t, "[line 2] Error at 'break': can't break from outside of a loop\n", h.err.String())
}

func TestRunMissingFile(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, 1, h.main([]string{"run", filepath.Join(h.dir, "missing.toy")}))
	assert.Contains(t, h.err.String(), "E_IO")
}

func TestRunUnsafeAllowAll(t *testing.T) {
	h := newHarness(t, "")
	target := filepath.Join(h.dir, "out.txt")
	src := `import "IO"; IO.Write("` + filepath.ToSlash(target) + `", "hi");`
	path := h.write(t, "prog.toy", src)

	assert.Equal(t, 3, h.main([]string{"run", path}))
	assert.NoFileExists(t, target)

	assert.Equal(t, 0, h.main([]string{"run", path, "--unsafe-allow-all"}))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestRunProjectPolicy(t *testing.T) {
	h := newHarness(t, "")
	h.write(t, ".toypolicy.yaml", "allow: [Math]\n")
	path := h.write(t, "prog.toy", `import "Math"; print Math.Abs(-2); import "Array";`)
	assert.Equal(t, 3, h.main([]string{"run", path}))
	assert.Equal(t, "2\n", h.out.String())
}

func TestRunWritesTrace(t *testing.T) {
	h := newHarness(t, "")
	path := h.write(t, "prog.toy", `var f = function(x) { return x; }; print f(1);`)
	tracePath := filepath.Join(h.dir, "trace.jsonl")
	require.Equal(t, 0, h.main([]string{"run", path, "--trace", tracePath}))

	h.out.Reset()
	require.Equal(t, 0, h.main([]string{"trace", tracePath}))
	var summary TraceSummary
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &summary))
	assert.Equal(t, "cli", summary.RunID)
	assert.Equal(t, 3, summary.Statements)
	assert.Equal(t, 1, summary.Calls)
	assert.Equal(t, 0, summary.Errors)
}

func TestCheck(t *testing.T) {
	h := newHarness(t, "")
	good := h.write(t, "good.toy", `var x = 1; print x;`)
	bad := h.write(t, "bad.toy", `{ var a = a; }`)

	assert.Equal(t, 0, h.main([]string{"check", good}))
	assert.Equal(t, "[]\n", h.out.String())

	h.out.Reset()
	assert.Equal(t, 0, h.main([]string{"check", good, "--pretty"}))
	assert.Equal(t, "No errors found.\n", h.out.String())

	assert.Equal(t, 2, h.main([]string{"check", bad}))
	assert.Contains(t, h.err.String(), "can't read a local variable in its own initializer")
}

func TestFmt(t *testing.T) {
	h := newHarness(t, "")
	path := h.write(t, "prog.toy", "var   x=1+2*3 ;print x; // note\n")
	assert.Equal(t, 0, h.main([]string{"fmt", path}))
	assert.Equal(t, "var x = 1 + 2 * 3;\nprint x;\n", h.out.String())
	assert.Contains(t, h.err.String(), "comments are not preserved")

	assert.Equal(t, 0, h.main([]string{"fmt", path, "--write"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "var x = 1 + 2 * 3;\nprint x;\n", string(data))
}

func TestAST(t *testing.T) {
	h := newHarness(t, "")
	path := h.write(t, "prog.toy", "print 1 + 2;\n")
	assert.Equal(t, 0, h.main([]string{"ast", path}))
	assert.Contains(t, h.out.String(), "line 1")
	assert.Contains(t, h.out.String(), "(+ 1 2)")
}

func TestHelp(t *testing.T) {
	h := newHarness(t, "")
	assert.Equal(t, 0, h.main([]string{"help"}))
	assert.Contains(t, h.out.String(), "Toy v0.1")

	h.out.Reset()
	assert.Equal(t, 0, h.main([]string{"help", "plug"}))
	assert.Contains(t, h.out.String(), "IO (denied)")
	assert.Contains(t, h.out.String(), "Total: 7 plugins")

	assert.Equal(t, 1, h.main([]string{"help", "p"}))
	assert.Contains(t, h.err.String(), "ambiguous")
}

func TestPolicyCommand(t *testing.T) {
	h := newHarness(t, "")
	require.Equal(t, 0, h.main([]string{"policy"}))
	var view policyView
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &view))
	assert.Equal(t, "default", view.Source)
	assert.Equal(t, []string{"*"}, view.Allow)
	assert.Equal(t, []string{"IO"}, view.Deny)

	h.write(t, ".toypolicy.yaml", "allow: [Array]\nlog_level: debug\n")
	h.out.Reset()
	require.Equal(t, 0, h.main([]string{"policy"}))
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &view))
	assert.Equal(t, filepath.Join(h.dir, ".toypolicy.yaml"), view.Source)
	assert.Equal(t, []string{"Array"}, view.Allow)
	assert.Equal(t, "debug", view.LogLevel)
}

func TestParseRunFlags(t *testing.T) {
	f, err := parseRunFlags([]string{"prog.toy", "--pretty", "--trace", "t.jsonl", "--max-depth", "10", "-v"})
	require.NoError(t, err)
	assert.Equal(t, runFlags{file: "prog.toy", pretty: true, verbose: true, tracePath: "t.jsonl", maxDepth: 10}, f)

	_, err = parseRunFlags([]string{"--trace"})
	assert.Error(t, err)
	_, err = parseRunFlags([]string{"--max-depth", "zero"})
	assert.Error(t, err)
	_, err = parseRunFlags([]string{"--bogus"})
	assert.EqualError(t, err, "unknown flag --bogus")
}

func TestComputeTraceSummary(t *testing.T) {
	trace := strings.Join([]string{
		`{"ts":"2024-01-01T00:00:00Z","runId":"r1","event":"run_start","line":0}`,
		`{"ts":"2024-01-01T00:00:00Z","runId":"r1","event":"stmt_start","line":1,"data":{"kind":"Var"}}`,
		`not json`,
		`{"ts":"2024-01-01T00:00:00Z","runId":"r1","event":"import","line":1,"data":{"plugin":"Math"}}`,
		`{"ts":"2024-01-01T00:00:00Z","runId":"r1","event":"fn_call_start","line":2,"data":{"depth":3}}`,
		`{"ts":"2024-01-01T00:00:00Z","runId":"r1","event":"error","line":2}`,
		`{"ts":"2024-01-01T00:00:00.250Z","runId":"r1","event":"run_end","line":0}`,
	}, "\n")

	s := computeTraceSummary(strings.NewReader(trace))
	assert.Equal(t, "r1", s.RunID)
	assert.Equal(t, 6, s.TotalEvents)
	assert.Equal(t, 1, s.Statements)
	assert.Equal(t, map[string]int{"Var": 1}, s.StmtsByKind)
	assert.Equal(t, 1, s.Calls)
	assert.Equal(t, 3, s.MaxDepth)
	assert.Equal(t, []string{"Math"}, s.Imports)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, float64(250), s.DurationMs)

	var buf bytes.Buffer
	printTraceSummaryText(&buf, s)
	assert.Contains(t, buf.String(), "Calls: 1 (max depth 3)")
	assert.Contains(t, buf.String(), "Duration: 250ms")
}

func TestIncomplete(t *testing.T) {
	assert.True(t, incomplete("var f = function() {"))
	assert.True(t, incomplete(`print "open`))
	assert.True(t, incomplete("/* still"))
	assert.False(t, incomplete("print 1;"))
	assert.False(t, incomplete("print 1 +;"))
}

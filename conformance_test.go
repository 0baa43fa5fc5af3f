package toy

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/toy/internal/testutil"
	"github.com/thomasrohde/toy/pkg/capabilities"
	"github.com/thomasrohde/toy/pkg/diagnostics"
	"github.com/thomasrohde/toy/pkg/evaluator"
	"github.com/thomasrohde/toy/pkg/runtime"
)

func TestConformance(t *testing.T) {
	files, err := testutil.ListScenarios(testutil.ScenariosDir)
	require.NoError(t, err)
	require.NotEmpty(t, files, "no scenarios found under %s", testutil.ScenariosDir)

	for _, file := range files {
		scenario, err := testutil.LoadScenario(file)
		require.NoError(t, err)

		t.Run(scenario.Name, func(t *testing.T) {
			var stdout string
			var diags []diagnostics.Diagnostic
			var exitCode int

			switch scenario.Cmd {
			case "run":
				stdout, diags, exitCode = runScenario(t, scenario)
			case "check":
				diags = runtime.New(runtime.WithOutput(io.Discard)).Check(scenario.Source)
				if len(diags) > 0 {
					exitCode = 2
				}
			case "fmt":
				out, err := runtime.New().Format(scenario.Source)
				if err != nil {
					var derr *runtime.DiagnosticError
					require.True(t, errors.As(err, &derr), "unexpected error: %v", err)
					diags, exitCode = derr.Diagnostics, 2
				}
				stdout = out
			default:
				t.Skipf("unsupported command: %s", scenario.Cmd)
			}

			checkExpectations(t, scenario, stdout, diags, exitCode)
		})
	}
}

func runScenario(t *testing.T, scenario *testutil.Scenario) (string, []diagnostics.Diagnostic, int) {
	t.Helper()

	var out bytes.Buffer
	opts := []runtime.Option{runtime.WithOutput(&out), runtime.WithRunID("test")}
	if scenario.Policy != nil {
		policy, err := capabilities.Build(&capabilities.PolicyFile{
			Allow: scenario.Policy.Allow,
			Deny:  scenario.Policy.Deny,
		})
		require.NoError(t, err)
		opts = append(opts, runtime.WithPolicy(policy))
	}

	rt := runtime.New(opts...)
	_, err := rt.Run(nil, scenario.Source)
	if err == nil {
		return out.String(), nil, 0
	}

	var derr *runtime.DiagnosticError
	if errors.As(err, &derr) {
		return out.String(), derr.Diagnostics, 2
	}
	var rerr *evaluator.RuntimeError
	require.True(t, errors.As(err, &rerr), "unexpected error type: %v", err)
	diag := rerr.Diagnostic()
	return out.String(), []diagnostics.Diagnostic{diag}, exitCodeForError(diag.Code)
}

func checkExpectations(t *testing.T, scenario *testutil.Scenario, stdout string, diags []diagnostics.Diagnostic, exitCode int) {
	t.Helper()
	expect := scenario.Expect

	assert.Equal(t, expect.ExitCode, exitCode, "exit code (diagnostics: %v)", diags)

	if expect.Stdout != nil {
		assert.Equal(t, *expect.Stdout, stdout)
	}
	if expect.StdoutContains != "" {
		assert.Contains(t, stdout, expect.StdoutContains)
	}
	if expect.StderrContains != "" {
		assert.Contains(t, diagnostics.FormatDiagnostics(diags, scenario.Pretty), expect.StderrContains)
	}

	for _, want := range expect.Diagnostics {
		assert.True(t, matchesAny(want, diags), "no diagnostic matches %+v in %v", want, diags)
	}
}

func matchesAny(want testutil.ExpectedDiag, diags []diagnostics.Diagnostic) bool {
	for _, d := range diags {
		if want.Code != "" && d.Code != want.Code {
			continue
		}
		if want.Line != 0 && d.Line != want.Line {
			continue
		}
		if want.MessageContains != "" && !strings.Contains(d.Message, want.MessageContains) {
			continue
		}
		return true
	}
	return false
}

func exitCodeForError(code string) int {
	switch code {
	case diagnostics.EDenied:
		return 3
	case diagnostics.EAssert:
		return 5
	default:
		return 4
	}
}

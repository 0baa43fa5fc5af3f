// Package runtime provides the top-level Toy run boundary: it wires the
// lexer, parser, resolver and interpreter together and owns the error flag.
package runtime

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/thomasrohde/toy/pkg/ast"
	"github.com/thomasrohde/toy/pkg/capabilities"
	"github.com/thomasrohde/toy/pkg/diagnostics"
	"github.com/thomasrohde/toy/pkg/evaluator"
	"github.com/thomasrohde/toy/pkg/formatter"
	"github.com/thomasrohde/toy/pkg/parser"
	"github.com/thomasrohde/toy/pkg/plugins"
	"github.com/thomasrohde/toy/pkg/resolver"
)

// ErrUnreset is returned by Run while errors from an earlier run are
// still flagged.
var ErrUnreset = errors.New("errors from a previous run have not been reset")

// Runtime wires together all Toy components for program execution.
type Runtime struct {
	reporter *diagnostics.Reporter
	plugins  evaluator.PluginLoader
	policy   *capabilities.Policy
	out      io.Writer
	logger   *slog.Logger
	runID    string
	trace    func(event evaluator.TraceEvent)
	maxDepth int

	// sessions keeps one interpreter per global environment so closures
	// from earlier runs keep their resolved bindings.
	sessions map[*evaluator.Env]*evaluator.Interpreter
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithOutput sets where print writes.
func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.out = w
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		if l != nil {
			rt.logger = l
		}
	}
}

// WithPlugins replaces the plugin loader.
func WithPlugins(l evaluator.PluginLoader) Option {
	return func(rt *Runtime) {
		rt.plugins = l
	}
}

// WithPolicy sets the capability policy used by the default plugin registry.
func WithPolicy(p *capabilities.Policy) Option {
	return func(rt *Runtime) {
		rt.policy = p
	}
}

// WithUnsafeAllowAll sets the policy to allow every plugin.
func WithUnsafeAllowAll() Option {
	return func(rt *Runtime) {
		rt.policy = capabilities.AllowAll()
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithMaxDepth bounds nested calls.
func WithMaxDepth(n int) Option {
	return func(rt *Runtime) {
		rt.maxDepth = n
	}
}

// New creates a new Runtime with the given options.
// By default the built-in plugins are registered under capabilities.Default().
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		reporter: diagnostics.NewReporter(),
		policy:   capabilities.Default(),
		out:      os.Stdout,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		runID:    "cli",
		sessions: make(map[*evaluator.Env]*evaluator.Interpreter),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.plugins == nil {
		rt.plugins = plugins.NewDefault(rt.policy)
	}
	return rt
}

// NewGlobals returns a fresh global environment with the policy's
// preloaded plugins installed.
func (rt *Runtime) NewGlobals() (*evaluator.Env, error) {
	env := evaluator.NewEnv(nil)
	if rt.policy == nil {
		return env, nil
	}
	for _, name := range rt.policy.Preload {
		p, err := rt.plugins.Load(name)
		if err != nil {
			return nil, errors.Wrapf(err, "preload %s", name)
		}
		if err := p.Initialize(env, ""); err != nil {
			return nil, errors.Wrapf(err, "preload %s", name)
		}
		rt.logger.Debug("preloaded plugin", "plugin", name)
	}
	return env, nil
}

// Run scans, parses, resolves and interprets source against env, creating
// fresh globals when env is nil. On success it returns the global
// environment for the next run; on failure it returns nil and either a
// *DiagnosticError (static errors) or a *evaluator.RuntimeError.
// Every failure sets the error flag, which must be cleared with Reset
// before another Run.
func (rt *Runtime) Run(env *evaluator.Env, source string) (*evaluator.Env, error) {
	if rt.reporter.HadError() {
		return nil, ErrUnreset
	}
	rt.logger.Debug("run start", "run_id", rt.runID, "bytes", len(source))

	stmts := parser.ParseSource(source, rt.reporter)
	if rt.reporter.HadError() {
		return nil, rt.diagnosticError()
	}

	if env == nil {
		var err error
		if env, err = rt.NewGlobals(); err != nil {
			rt.reporter.Error(diagnostics.ERuntime, -1, "", err.Error())
			return nil, err
		}
	}
	in := rt.session(env)

	resolver.New(in, rt.reporter).Resolve(stmts)
	if rt.reporter.HadError() {
		return nil, rt.diagnosticError()
	}

	if err := in.Interpret(stmts); err != nil {
		var rerr *evaluator.RuntimeError
		if errors.As(err, &rerr) {
			rt.reporter.Report(rerr.Diagnostic())
		} else {
			rt.reporter.Error(diagnostics.ERuntime, -1, "", err.Error())
		}
		rt.logger.Debug("run failed", "run_id", rt.runID, "error", err)
		return nil, err
	}
	rt.logger.Debug("run done", "run_id", rt.runID)
	return env, nil
}

// RunFile runs the file at path in fresh globals.
func (rt *Runtime) RunFile(path string) (*evaluator.Env, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		rt.reporter.Error(diagnostics.EIO, -1, "", fmt.Sprintf("cannot read %s: %s", path, err))
		return nil, rt.diagnosticError()
	}
	return rt.Run(nil, string(src))
}

func (rt *Runtime) session(env *evaluator.Env) *evaluator.Interpreter {
	if in, ok := rt.sessions[env]; ok {
		return in
	}
	in := evaluator.New(env,
		evaluator.WithOutput(rt.out),
		evaluator.WithPlugins(rt.plugins),
		evaluator.WithLogger(rt.logger),
		evaluator.WithTrace(rt.trace),
		evaluator.WithRunID(rt.runID),
		evaluator.WithMaxDepth(rt.maxDepth),
	)
	rt.sessions[env] = in
	return in
}

// HadError reports whether a run has failed since the last Reset.
func (rt *Runtime) HadError() bool { return rt.reporter.HadError() }

// Diagnostics returns everything reported since the last Reset.
func (rt *Runtime) Diagnostics() []diagnostics.Diagnostic { return rt.reporter.Diagnostics() }

// Reset clears the error flag and collected diagnostics.
func (rt *Runtime) Reset() { rt.reporter.Reset() }

func (rt *Runtime) diagnosticError() *DiagnosticError {
	return &DiagnosticError{Diagnostics: rt.reporter.Diagnostics()}
}

// Parse scans and parses source without touching the runtime's error flag.
func (rt *Runtime) Parse(source string) ([]ast.Stmt, error) {
	r := diagnostics.NewReporter()
	stmts := parser.ParseSource(source, r)
	if r.HadError() {
		return nil, &DiagnosticError{Diagnostics: r.Diagnostics()}
	}
	return stmts, nil
}

// Check parses and resolves a Toy program without executing it.
func (rt *Runtime) Check(source string) []diagnostics.Diagnostic {
	r := diagnostics.NewReporter()
	stmts := parser.ParseSource(source, r)
	if r.HadError() {
		return r.Diagnostics()
	}
	resolver.New(evaluator.New(nil), r).Resolve(stmts)
	return r.Diagnostics()
}

// Format parses and formats a Toy program.
func (rt *Runtime) Format(source string) (string, error) {
	stmts, err := rt.Parse(source)
	if err != nil {
		return "", err
	}
	return formatter.Format(stmts), nil
}

// DiagnosticError wraps static diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

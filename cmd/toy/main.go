// Command toy is the Toy CLI entry point.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/thomasrohde/toy/pkg/capabilities"
	"github.com/thomasrohde/toy/pkg/diagnostics"
	"github.com/thomasrohde/toy/pkg/evaluator"
	"github.com/thomasrohde/toy/pkg/formatter"
	"github.com/thomasrohde/toy/pkg/help"
	"github.com/thomasrohde/toy/pkg/plugins"
	"github.com/thomasrohde/toy/pkg/runtime"
)

const usage = "usage: toy <command> [options]\ncommands: run, repl, check, fmt, ast, trace, help, policy, version"

// cli carries the process streams so commands can be exercised in tests.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cwd    string
}

func main() {
	cwd, _ := os.Getwd()
	c := &cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr, cwd: cwd}
	os.Exit(c.main(os.Args[1:]))
}

func (c *cli) main(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(c.stderr, usage)
		return 1
	}

	cmd := args[0]
	switch cmd {
	case "run":
		return c.cmdRun(args[1:])
	case "repl":
		return c.cmdRepl(args[1:])
	case "check":
		return c.cmdCheck(args[1:])
	case "fmt":
		return c.cmdFmt(args[1:])
	case "ast":
		return c.cmdAST(args[1:])
	case "trace":
		return c.cmdTrace(args[1:])
	case "help", "--help", "-h":
		return c.cmdHelp(args[1:])
	case "policy":
		return c.cmdPolicy(args[1:])
	case "version", "--version":
		fmt.Fprintf(c.stdout, "toy %s\n", help.Version)
		return 0
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n%s\n", cmd, usage)
		return 1
	}
}

// runFlags are shared by run and repl.
type runFlags struct {
	file           string
	pretty         bool
	unsafeAllowAll bool
	verbose        bool
	tracePath      string
	maxDepth       int
}

func parseRunFlags(args []string) (runFlags, error) {
	var f runFlags
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			f.pretty = true
		case "--unsafe-allow-all":
			f.unsafeAllowAll = true
		case "-v", "--verbose":
			f.verbose = true
		case "--trace":
			if i+1 >= len(args) {
				return f, errors.New("--trace requires a file path")
			}
			i++
			f.tracePath = args[i]
		case "--max-depth":
			if i+1 >= len(args) {
				return f, errors.New("--max-depth requires a number")
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n <= 0 {
				return f, errors.Errorf("invalid --max-depth %q", args[i])
			}
			f.maxDepth = n
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				f.file = args[i]
			} else {
				return f, errors.Errorf("unknown flag %s", args[i])
			}
		}
	}
	return f, nil
}

// newRuntime loads the policy and builds a runtime configured by f.
// The returned closer flushes the trace file, if any.
func (c *cli) newRuntime(f runFlags) (*runtime.Runtime, func(), error) {
	policy, err := capabilities.LoadPolicy(c.cwd)
	if err != nil {
		return nil, nil, err
	}
	if f.unsafeAllowAll {
		policy = capabilities.AllowAll()
	}

	level := slog.LevelWarn
	if policy.Source != "" {
		level = policy.LogLevel
	}
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
	logger.Debug("policy loaded", "source", policy.Source, "allow", policy.Allowed(), "deny", policy.Denied())

	opts := []runtime.Option{
		runtime.WithOutput(c.stdout),
		runtime.WithLogger(logger),
		runtime.WithPolicy(policy),
		runtime.WithMaxDepth(f.maxDepth),
	}

	closer := func() {}
	if f.tracePath != "" {
		tw, err := newTraceWriter(f.tracePath)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, runtime.WithTrace(tw.write))
		closer = func() {
			if err := tw.Close(); err != nil {
				logger.Warn("closing trace file", "error", err)
			}
		}
	}
	return runtime.New(opts...), closer, nil
}

func (c *cli) cmdRun(args []string) int {
	f, err := parseRunFlags(args)
	if err != nil || f.file == "" {
		if err != nil {
			fmt.Fprintln(c.stderr, err)
		}
		fmt.Fprintln(c.stderr, "usage: toy run <file|-> [--pretty] [--trace <file.jsonl>] [--unsafe-allow-all] [--max-depth N] [-v]")
		return 1
	}

	source, code := c.readSource(f.file, f.pretty)
	if code != 0 {
		return code
	}

	rt, closeTrace, err := c.newRuntime(f)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	defer closeTrace()

	if _, err := rt.Run(nil, source); err != nil {
		return c.reportRunError(err, f.pretty)
	}
	return 0
}

// reportRunError prints a failed run and maps it to an exit code.
func (c *cli) reportRunError(err error, pretty bool) int {
	var derr *runtime.DiagnosticError
	if errors.As(err, &derr) {
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(derr.Diagnostics, pretty))
		return 2
	}
	var rerr *evaluator.RuntimeError
	if errors.As(err, &rerr) {
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostic(rerr.Diagnostic(), pretty))
		return exitCodeForDiag(rerr.Diagnostic().Code)
	}
	fmt.Fprintln(c.stderr, err.Error())
	return 4
}

func (c *cli) cmdCheck(args []string) int {
	var file string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: toy check <file> [--pretty]")
		return 1
	}

	source, code := c.readSource(file, pretty)
	if code != 0 {
		return code
	}

	rt := runtime.New(runtime.WithOutput(io.Discard))
	diags := rt.Check(source)
	if len(diags) > 0 {
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(diags, pretty))
		return 2
	}

	if pretty {
		fmt.Fprintln(c.stdout, "No errors found.")
	} else {
		fmt.Fprintln(c.stdout, "[]")
	}
	return 0
}

func (c *cli) cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: toy fmt <file> [--write]")
		return 1
	}

	source, code := c.readSource(file, false)
	if code != 0 {
		return code
	}

	rt := runtime.New(runtime.WithOutput(io.Discard))
	formatted, err := rt.Format(source)
	if err != nil {
		return c.reportRunError(err, false)
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(c.stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			fmt.Fprintf(c.stderr, "error writing file: %s\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprint(c.stdout, formatted)
	return 0
}

func (c *cli) cmdHelp(args []string) int {
	topic := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if topic == "" {
		fmt.Fprint(c.stdout, help.QUICKREF)
		return 0
	}

	name, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s\n", err)
		return 1
	}
	fmt.Fprint(c.stdout, content)
	if name == "plugins" {
		policy, err := capabilities.LoadPolicy(c.cwd)
		if err != nil {
			policy = capabilities.Default()
		}
		fmt.Fprintln(c.stdout)
		fmt.Fprint(c.stdout, help.PluginIndex(plugins.NewDefault(policy)))
	}
	return 0
}

// policyView is the JSON shape printed by `toy policy`.
type policyView struct {
	Source   string   `json:"source"`
	Allow    []string `json:"allow"`
	Deny     []string `json:"deny"`
	Preload  []string `json:"preload,omitempty"`
	LogLevel string   `json:"logLevel"`
}

func (c *cli) cmdPolicy(args []string) int {
	policy, err := capabilities.LoadPolicy(c.cwd)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	source := policy.Source
	if source == "" {
		source = "default"
	}
	view := policyView{
		Source:   source,
		Allow:    policy.Allowed(),
		Deny:     policy.Denied(),
		Preload:  policy.Preload,
		LogLevel: strings.ToLower(policy.LogLevel.String()),
	}
	b, _ := json.MarshalIndent(view, "", "  ")
	fmt.Fprintln(c.stdout, string(b))
	return 0
}

// readSource reads file, or stdin for "-". A read failure is reported as
// an E_IO diagnostic and yields a non-zero code.
func (c *cli) readSource(file string, pretty bool) (string, int) {
	if file == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			fmt.Fprintf(c.stderr, "error reading stdin: %s\n", err)
			return "", 1
		}
		return string(data), 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), -1, "", "")
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
		return "", 1
	}
	return string(source), 0
}

func exitCodeForDiag(code string) int {
	switch code {
	case diagnostics.EDenied:
		return 3
	case diagnostics.EAssert:
		return 5
	default:
		return 4
	}
}

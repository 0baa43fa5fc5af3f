package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/thomasrohde/toy/pkg/diagnostics"
	"github.com/thomasrohde/toy/pkg/evaluator"
)

// traceWriter appends trace events to a file as JSON lines.
type traceWriter struct {
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
	err error
}

func newTraceWriter(path string) (*traceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "open trace file")
	}
	buf := bufio.NewWriter(f)
	return &traceWriter{f: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

func (w *traceWriter) write(ev evaluator.TraceEvent) {
	if w.err != nil {
		return
	}
	w.err = w.enc.Encode(ev)
}

func (w *traceWriter) Close() error {
	if err := w.buf.Flush(); err != nil && w.err == nil {
		w.err = err
	}
	if err := w.f.Close(); err != nil && w.err == nil {
		w.err = err
	}
	return w.err
}

func (c *cli) cmdTrace(args []string) int {
	var file string
	textOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: toy trace <file.jsonl> [--json|--text]")
		return 1
	}

	f, err := os.Open(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), -1, "", "")
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, false))
		return 1
	}
	defer f.Close()

	summary := computeTraceSummary(f)
	if textOutput {
		printTraceSummaryText(c.stdout, summary)
	} else {
		b, _ := json.Marshal(summary)
		fmt.Fprintln(c.stdout, string(b))
	}
	return 0
}

// TraceSummary aggregates a JSONL trace.
type TraceSummary struct {
	RunID       string         `json:"runId"`
	TotalEvents int            `json:"totalEvents"`
	Statements  int            `json:"statements"`
	StmtsByKind map[string]int `json:"stmtsByKind"`
	Calls       int            `json:"calls"`
	MaxDepth    int            `json:"maxDepth"`
	Imports     []string       `json:"imports,omitempty"`
	Errors      int            `json:"errors"`
	StartTime   string         `json:"startTime,omitempty"`
	EndTime     string         `json:"endTime,omitempty"`
	DurationMs  float64        `json:"durationMs"`
}

func computeTraceSummary(r io.Reader) *TraceSummary {
	summary := &TraceSummary{
		StmtsByKind: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event evaluator.TraceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.Timestamp
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.Timestamp
		case evaluator.TraceStmtStart:
			summary.Statements++
			if kind, ok := event.Data["kind"].(string); ok {
				summary.StmtsByKind[kind]++
			}
		case evaluator.TraceFnCallStart:
			summary.Calls++
			// JSON numbers decode as float64
			if d, ok := event.Data["depth"].(float64); ok && int(d) > summary.MaxDepth {
				summary.MaxDepth = int(d)
			}
		case evaluator.TraceImport:
			if name, ok := event.Data["plugin"].(string); ok {
				summary.Imports = append(summary.Imports, name)
			}
		case evaluator.TraceError:
			summary.Errors++
		}
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Milliseconds())
		}
	}

	return summary
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Statements: %d\n", s.Statements)
	kinds := make([]string, 0, len(s.StmtsByKind))
	for k := range s.StmtsByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", k, s.StmtsByKind[k])
	}
	fmt.Fprintf(w, "Calls: %d (max depth %d)\n", s.Calls, s.MaxDepth)
	if len(s.Imports) > 0 {
		fmt.Fprintf(w, "Imports: %s\n", strings.Join(s.Imports, ", "))
	}
	fmt.Fprintf(w, "Errors: %d\n", s.Errors)
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.0fms\n", s.DurationMs)
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, errors.Errorf("cannot parse time: %s", s)
}

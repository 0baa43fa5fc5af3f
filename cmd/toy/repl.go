package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/thomasrohde/toy/pkg/capabilities"
	"github.com/thomasrohde/toy/pkg/diagnostics"
	"github.com/thomasrohde/toy/pkg/help"
	"github.com/thomasrohde/toy/pkg/parser"
)

const (
	promptMain = "> "
	promptCont = ". "
)

// cmdRepl runs one line (or one complete multi-line chunk) at a time
// against a single persistent global environment. Errors are printed and
// cleared so the session keeps going.
func (c *cli) cmdRepl(args []string) int {
	f, err := parseRunFlags(args)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		fmt.Fprintln(c.stderr, "usage: toy repl [--unsafe-allow-all] [--trace <file.jsonl>] [-v]")
		return 1
	}
	f.pretty = true

	rt, closeTrace, err := c.newRuntime(f)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	defer closeTrace()

	env, err := rt.NewGlobals()
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if histPath := historyPath(); histPath != "" {
		if hf, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(hf)
			_ = hf.Close()
		}
		defer func() {
			if err := os.MkdirAll(filepath.Dir(histPath), 0o755); err != nil {
				return
			}
			if hf, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(hf)
				_ = hf.Close()
			}
		}()
	}

	fmt.Fprintf(c.stdout, "toy %s (type :quit to exit)\n", help.Version)
	for {
		src, ok := readChunk(ln)
		if !ok {
			fmt.Fprintln(c.stdout)
			return 0
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if c.replCommand(trimmed) {
				return 0
			}
			continue
		}

		if next, err := rt.Run(env, src); err != nil {
			c.reportRunError(err, f.pretty)
		} else {
			env = next
		}
		rt.Reset()
	}
}

// replCommand handles ':' commands and reports whether to exit.
func (c *cli) replCommand(cmd string) bool {
	switch cmd {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		fmt.Fprint(c.stdout, help.QUICKREF)
	case ":policy":
		c.cmdPolicy(nil)
	default:
		fmt.Fprintln(c.stdout, "unknown command. Type :help or :quit.")
	}
	return false
}

// readChunk keeps prompting while the input so far is only incomplete,
// that is every error it produces is at the end of the input.
func readChunk(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			if b.Len() > 0 {
				return "", true
			}
			return "", false
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !incomplete(src) {
			return src, true
		}
	}
}

func incomplete(src string) bool {
	r := diagnostics.NewReporter()
	parser.ParseSource(src, r)
	diags := r.Diagnostics()
	if len(diags) == 0 {
		return false
	}
	for _, d := range diags {
		switch {
		case d.Where == "at end":
		case d.Code == diagnostics.EScan && strings.HasPrefix(d.Message, "unterminated"):
		default:
			return false
		}
	}
	return true
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, capabilities.UserDir, "history")
}

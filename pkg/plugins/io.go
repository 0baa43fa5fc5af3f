package plugins

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/thomasrohde/toy/pkg/evaluator"
	"github.com/thomasrohde/toy/pkg/lexer"
)

type ioPlugin struct{}

func ioDef() Def {
	return Def{
		Name:    "IO",
		Summary: "file system access (denied unless the policy allows it)",
		Members: []string{"Read(path)", "Write(path, text)", "Exists(path)", "List(dir)"},
		New:     func() evaluator.Plugin { return ioPlugin{} },
	}
}

func (ioPlugin) Initialize(env *evaluator.Env, alias string) error {
	return install(env, alias, "IO", &table{name: "IO", members: map[string]evaluator.Value{
		"Read":   evaluator.NewNative("Read", 1, ioRead),
		"Write":  evaluator.NewNative("Write", 2, ioWrite),
		"Exists": evaluator.NewNative("Exists", 1, ioExists),
		"List":   evaluator.NewNative("List", 1, ioList),
	}})
}

func resolvePath(tok lexer.Token, fn string, v evaluator.Value) (string, error) {
	p, err := argString(tok, fn, v)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.Abs(p)
	if err != nil {
		return "", errors.Wrapf(err, "%s: invalid path", fn)
	}
	return resolved, nil
}

func ioRead(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
	path, err := resolvePath(tok, "Read", args[0])
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Read")
	}
	return evaluator.String(data), nil
}

// ioWrite creates parent directories as needed and returns the number
// of bytes written.
func ioWrite(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
	path, err := resolvePath(tok, "Write", args[0])
	if err != nil {
		return nil, err
	}
	content := evaluator.Stringify(args[1])
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "Write: cannot create directory")
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, errors.Wrap(err, "Write")
	}
	return evaluator.Number(len(content)), nil
}

func ioExists(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
	path, err := resolvePath(tok, "Exists", args[0])
	if err != nil {
		return nil, err
	}
	_, err = os.Stat(path)
	return evaluator.Bool(err == nil), nil
}

// ioList returns the entry names of a directory, sorted, as an Array.
func ioList(in *evaluator.Interpreter, tok lexer.Token, args []evaluator.Value) (evaluator.Value, error) {
	path, err := resolvePath(tok, "List", args[0])
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrap(err, "List")
	}
	out := NewArray()
	for _, e := range entries {
		out.list.Add(evaluator.String(e.Name()))
	}
	return out, nil
}

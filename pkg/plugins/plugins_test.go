package plugins_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/toy/pkg/capabilities"
	"github.com/thomasrohde/toy/pkg/diagnostics"
	"github.com/thomasrohde/toy/pkg/evaluator"
	"github.com/thomasrohde/toy/pkg/lexer"
	"github.com/thomasrohde/toy/pkg/parser"
	"github.com/thomasrohde/toy/pkg/plugins"
	"github.com/thomasrohde/toy/pkg/resolver"
)

func run(t *testing.T, policy *capabilities.Policy, src string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	r := diagnostics.NewReporter()
	stmts := parser.ParseSource(src, r)
	require.False(t, r.HadError(), "static errors: %s", diagnostics.FormatDiagnostics(r.Diagnostics(), true))

	in := evaluator.New(nil,
		evaluator.WithOutput(&out),
		evaluator.WithPlugins(plugins.NewDefault(policy)),
	)
	resolver.New(in, r).Resolve(stmts)
	require.False(t, r.HadError(), "static errors: %s", diagnostics.FormatDiagnostics(r.Diagnostics(), true))
	err := in.Interpret(stmts)
	return out.String(), err
}

func mustRun(t *testing.T, src string) string {
	t.Helper()
	out, err := run(t, nil, src)
	require.NoError(t, err)
	return out
}

func runtimeError(t *testing.T, src string) *evaluator.RuntimeError {
	t.Helper()
	_, err := run(t, nil, src)
	require.Error(t, err)
	var rerr *evaluator.RuntimeError
	require.True(t, errors.As(err, &rerr), "got %T", err)
	return rerr
}

func lines(vals ...string) string {
	return strings.Join(vals, "\n") + "\n"
}

func TestRegistryNamesAndLoad(t *testing.T) {
	r := plugins.NewDefault(nil)
	assert.Equal(t, []string{"Array", "Dictionary", "IO", "Math", "Standard", "String", "Toy"}, r.Names())
	assert.Len(t, r.All(), 7)
	assert.Equal(t, "Array", r.Get("Array").Name)
	assert.Nil(t, r.Get("Nope"))

	p, err := r.Load("Math")
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = r.Load("Nope")
	assert.EqualError(t, err, "unknown plugin 'Nope'")

	_, err = r.Load("IO")
	require.Error(t, err)
	assert.True(t, errors.Is(err, evaluator.ErrDenied))
	assert.EqualError(t, err, "import of 'IO': denied by policy")
}

func TestLoadReturnsFreshInstances(t *testing.T) {
	r := plugins.NewDefault(nil)
	a, err := r.Load("Standard")
	require.NoError(t, err)
	b, err := r.Load("Standard")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestImportDeniedCarriesCode(t *testing.T) {
	rerr := runtimeError(t, `import "IO";`)
	assert.Equal(t, diagnostics.EDenied, rerr.Code)
	assert.Equal(t, 1, rerr.Token.Line)

	rerr = runtimeError(t, `import "Missing";`)
	assert.Equal(t, diagnostics.ERuntime, rerr.Code)
	assert.Equal(t, "unknown plugin 'Missing'", rerr.Message)
}

func TestToy(t *testing.T) {
	assert.Equal(t, lines("0.1", "Kayne Ruse"), mustRun(t, `
		import "Toy";
		print Toy.version;
		print Toy.author;
	`))
	assert.Equal(t, lines("Kayne Ruse"), mustRun(t, `import "Toy" as T; print T.author;`))

	rerr := runtimeError(t, `import "Toy"; print Toy.license;`)
	assert.Equal(t, "unknown property 'license'", rerr.Message)
}

func TestStandardGlobalsAndBundle(t *testing.T) {
	out := mustRun(t, `
		import "Standard";
		var c = Clock();
		print c > 1000000000;
		RandomSeed(42);
		var r = Random();
		print r >= 0 && r < 1;
	`)
	assert.Equal(t, lines("true", "true"), out)

	out = mustRun(t, `
		import "Standard" as std;
		std.RandomSeed(7);
		var a = std.Random();
		std.RandomSeed(7);
		print a == std.Random();
	`)
	assert.Equal(t, lines("true"), out)

	rerr := runtimeError(t, `import "Standard"; RandomSeed("x");`)
	assert.Contains(t, rerr.Message, "expected number")

	rerr = runtimeError(t, `import "Standard"; import "Standard";`)
	assert.Contains(t, rerr.Message, "can't redefine variable 'Clock'")
}

func TestStandardClock(t *testing.T) {
	env := evaluator.NewEnv(nil)
	require.NoError(t, plugins.NewStandard().Initialize(env, ""))
	clock, ok := env.Get("Clock").(evaluator.Callable)
	require.True(t, ok)

	before := float64(time.Now().UnixMilli()) / 1000
	v, err := evaluator.New(env).Call(clock, lexer.Token{Line: 1}, nil)
	require.NoError(t, err)
	assert.InDelta(t, before, float64(v.(evaluator.Number)), 5)
}

func TestMath(t *testing.T) {
	out := mustRun(t, `
		import "Math";
		print Math.Abs(-3);
		print Math.Floor(2.7);
		print Math.Ceil(2.1);
		print Math.Sqrt(16);
		print Math.Pow(2, 10);
		print Math.Min(4, 2, 8);
		print Math.Max(4, 2, 8);
		print Math.PI > 3.14 && Math.PI < 3.15;
	`)
	assert.Equal(t, lines("3", "2", "3", "4", "1024", "2", "8", "true"), out)

	rerr := runtimeError(t, `import "Math"; Math.Max();`)
	assert.Equal(t, "Max: expected at least 1 argument", rerr.Message)
	rerr = runtimeError(t, `import "Math"; Math.Abs("x");`)
	assert.Equal(t, "Abs: unexpected argument type string (expected number)", rerr.Message)
}

func TestArrayMethods(t *testing.T) {
	out := mustRun(t, `
		import "Array";
		var a = Array();
		a.Push(1);
		a.Push(2);
		a.Unshift(0);
		print a;
		print a.Length();
		print a.Pop();
		print a.Shift();
		print a;
		a.Insert(1, 5);
		a.Insert(0, 9);
		print a.ToString();
		a.Delete(0);
		print a;
	`)
	assert.Equal(t, lines("[0,1,2]", "3", "2", "0", "[1]", "[9,1,5]", "[1,5]"), out)
}

func TestArrayIndexAndSlice(t *testing.T) {
	out := mustRun(t, `
		import "Array";
		var a = Array(10, 20, 30, 40, 50);
		print a[0];
		a[1] = 21;
		a[2] += 1;
		print a;
		print a[1:3];
		print a[:2];
		print a[3:];
		print a[::2];
		print a[::-1];
		var b = a[:];
		b.Push(60);
		print a.Length();
		print b.Length();
	`)
	assert.Equal(t, lines(
		"10",
		"[10,21,31,40,50]",
		"[21,31,40]",
		"[10,21,31]",
		"[40,50]",
		"[10,31,50]",
		"[50,40,31,21,10]",
		"5",
		"6",
	), out)
}

func TestArraySliceAssignment(t *testing.T) {
	out := mustRun(t, `
		import "Array";
		var a = Array(1, 2, 3, 4);
		a[1:2] = Array(9);
		print a;
		var e = Array();
		e[:] = Array(7, 8);
		print e;
	`)
	assert.Equal(t, lines("[1,9,4]", "[7,8]"), out)

	rerr := runtimeError(t, `import "Array"; var a = Array(1, 2, 3); a[::2] = Array();`)
	assert.Equal(t, "can't assign to a slice with a step", rerr.Message)
	rerr = runtimeError(t, `import "Array"; var a = Array(1, 2); a[0:1] = 5;`)
	assert.Contains(t, rerr.Message, "can only assign an array")
}

func TestArrayErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`var a = Array(); a.Pop();`, "can't pop from an empty array"},
		{`var a = Array(); a.Shift();`, "can't shift from an empty array"},
		{`var a = Array(1); print a[1];`, "index 1 out of range (length 1)"},
		{`var a = Array(1); print a[-1];`, "index -1 out of range (length 1)"},
		{`var a = Array(1); print a[0.5];`, "index must be a whole number, got 0.5"},
		{`var a = Array(1, 2); print a[::0];`, "slice step can't be 0"},
		{`var a = Array(1); a.Delete(3);`, "index 3 out of range (length 1)"},
		{`var a = Array(1); a.Nope();`, "unknown property 'Nope'"},
		{`var a = Array(1, 2); a.Sort(function(x, y) { return "no"; });`, "unexpected result type from comparator (expected number)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			rerr := runtimeError(t, `import "Array"; `+tt.src)
			assert.Equal(t, tt.want, rerr.Message)
		})
	}
}

func TestArraySort(t *testing.T) {
	out := mustRun(t, `
		import "Array";
		var a = Array(3, 1, 2, 5, 4);
		a.Sort(function(x, y) { return x - y; });
		print a;
		a.Sort(function(x, y) { return y - x; });
		print a;
	`)
	assert.Equal(t, lines("[1,2,3,4,5]", "[5,4,3,2,1]"), out)
}

func TestArrayCircularToString(t *testing.T) {
	out := mustRun(t, `
		import "Array";
		var a = Array(1);
		a.Push(a);
		print a;
	`)
	assert.Equal(t, lines("[1,<circular reference>]"), out)
}

func TestDictionary(t *testing.T) {
	out := mustRun(t, `
		import "Dictionary";
		var d = Dictionary();
		d["b"] = 2;
		d["a"] = 1;
		d.Insert("c", 3);
		print d;
		print d["a"];
		print d["missing"];
		print d.Contains("b");
		d.Delete("b");
		print d.Contains("b");
		print d.Length();
		d["a"] += 10;
		print d.ToString();
	`)
	assert.Equal(t, lines("{b:2,a:1,c:3}", "1", "null", "true", "false", "2", "{a:11,c:3}"), out)
}

func TestDictionaryCopyKeysValues(t *testing.T) {
	out := mustRun(t, `
		import "Array";
		import "Dictionary";
		var d = Dictionary();
		d[1] = "one";
		d[true] = "yes";
		var c = d[:];
		c["x"] = 0;
		print d.Length();
		print c.Length();
		print d.Keys();
		print d.Values();
	`)
	assert.Equal(t, lines("2", "3", "[1,true]", "[one,yes]"), out)

	rerr := runtimeError(t, `import "Dictionary"; var d = Dictionary(); print d[0:1];`)
	assert.Equal(t, "can't slice a dictionary, except with [:]", rerr.Message)
}

func TestString(t *testing.T) {
	out := mustRun(t, `
		import "String";
		var s = String("hello world");
		print s;
		print s.Length();
		print s[0];
		print s[0:4];
		print s[6:];
		print s[::2];
		print s[::-1];
		s[0:4] = "HELLO";
		print s;
		s[0] = "J";
		print s.ToString();
		print s == "JELLO world";
	`)
	assert.Equal(t, lines(
		"hello world",
		"11",
		"h",
		"hello",
		"world",
		"hlowrd",
		"dlrow olleh",
		"HELLO world",
		"JELLO world",
		"true",
	), out)

	rerr := runtimeError(t, `import "String"; var s = String("ab"); s[::2] = "x";`)
	assert.Equal(t, "can't assign to a slice with a step", rerr.Message)
	rerr = runtimeError(t, `import "String"; var s = String("ab"); print s[5];`)
	assert.Equal(t, "index 5 out of range (length 2)", rerr.Message)
}

func TestIOGatedByPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "note.txt")
	src := `
		import "IO";
		print IO.Exists("` + filepath.ToSlash(path) + `");
		print IO.Write("` + filepath.ToSlash(path) + `", "hi there");
		print IO.Read("` + filepath.ToSlash(path) + `");
		print IO.List("` + filepath.ToSlash(filepath.Dir(path)) + `");
	`
	_, err := run(t, nil, src)
	require.Error(t, err)

	out, err := run(t, capabilities.AllowAll(), src)
	require.NoError(t, err)
	assert.Equal(t, lines("false", "8", "hi there", "[note.txt]"), out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hi there", string(data))
}

package formatter_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/toy/pkg/diagnostics"
	"github.com/thomasrohde/toy/pkg/formatter"
	"github.com/thomasrohde/toy/pkg/parser"
)

func format(t *testing.T, src string) string {
	t.Helper()
	r := diagnostics.NewReporter()
	stmts := parser.ParseSource(src, r)
	require.False(t, r.HadError(), "parse errors: %s", diagnostics.FormatDiagnostics(r.Diagnostics(), true))
	return formatter.Format(stmts)
}

func TestFormatStatements(t *testing.T) {
	src := `var a=1;const B="x\ty";
if(a>0)print a;else{print -a;}
while(a<3){a++;}
for(var i=0;i<2;i+=1){if(i==1)break;continue;}
var f=function(x,y){return x*(y+1);};
import "Math" as m;
assert a==3,"bad";
pass;`
	want := `var a = 1;
const B = "x\ty";
if (a > 0) print a; else {
  print -a;
}
while (a < 3) {
  a++;
}
for (var i = 0; i < 2; i += 1) {
  if (i == 1) break;
  continue;
}
var f = function(x, y) {
  return x * (y + 1);
};
import "Math" as m;
assert a == 3, "bad";
pass;
`
	got := format(t, src)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Format mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatIsIdempotent(t *testing.T) {
	sources := []string{
		`print (1 + 2) * 3 - 4 / (5 % 2);`,
		`var x = a ? b : c ? d : e;`,
		`print !(a && b) || c;`,
		`print - -x;`,
		`x = y = 3;`,
		`print a[1:2];`,
		`print s[:3:1];`,
		`print obj.field(1)[0];`,
		`for (;;) { break; }`,
	}
	for _, src := range sources {
		once := format(t, src)
		twice := format(t, once)
		assert.Equal(t, once, twice, "source %q", src)
	}
}

func TestFormatParensAndSlices(t *testing.T) {
	assert.Equal(t, "print (1 + 2) * 3;\n", format(t, `print (1+2)*3;`))
	assert.Equal(t, "print a[:2];\n", format(t, `print a[ : 2 ];`))
	assert.Equal(t, "print a[1:];\n", format(t, `print a[1:];`))
	assert.Equal(t, "", formatter.Format(nil))
}

func TestHasComments(t *testing.T) {
	assert.True(t, formatter.HasComments("print 1; // note"))
	assert.True(t, formatter.HasComments("/* block */ print 1;"))
	assert.False(t, formatter.HasComments(`print "http://x";`))
	assert.False(t, formatter.HasComments(`print 4 / 2;`))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "3", formatter.FormatNumber(3))
	assert.Equal(t, "0.5", formatter.FormatNumber(0.5))
	assert.Equal(t, "inf", formatter.FormatNumber(math.Inf(1)))
	assert.Equal(t, "-inf", formatter.FormatNumber(math.Inf(-1)))
	assert.Equal(t, "nan", formatter.FormatNumber(math.NaN()))
}

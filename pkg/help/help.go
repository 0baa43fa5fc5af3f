// Package help holds the built-in reference text printed by `toy help`.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/thomasrohde/toy/pkg/plugins"
)

// Version is the language version reported by the CLI.
const Version = "0.1.0"

// QUICKREF is printed by `toy help` with no topic.
const QUICKREF = `Toy v0.1 quick reference

  toy run <file|->       run a script
  toy repl               interactive session
  toy check <file>       report scan, parse and resolve errors
  toy fmt <file>         print canonical source
  toy ast <file>         dump expression trees
  toy trace <file.jsonl> summarise a trace
  toy policy             show the effective plugin policy

Topics (toy help <topic>):
  syntax       statements, expressions and operator precedence
  types        values, truthiness and equality
  flow         blocks, loops, functions and closures
  plugins      import and the built-in plugins
  policy       which plugins a script may import
  diagnostics  error codes and output formats
  examples     short complete programs
`

// TopicList fixes the order topics are listed in.
var TopicList = []string{"syntax", "types", "flow", "plugins", "policy", "diagnostics", "examples"}

// Topics maps each topic name to its text.
var Topics = map[string]string{
	"syntax": `Statements end with ';'.

  var x = 1;            const PI = 3.14;
  print x;              assert x > 0, "message";
  { ... }               if (c) a; else b;
  while (c) body        for (init; cond; incr) body
  break; continue;      return value;
  import "Name" as alias;
  pass;

Comments: // to end of line, /* block */.

Precedence, loosest first:
  = += -= *= /= %=      (right associative)
  ?:                    (right associative)
  ||  &&
  == !=
  < <= > >=
  + -
  * / %
  ! -                   (prefix)
  ++ --                 (prefix or postfix, variables only)
  call()  index[]  slice[a:b:c]  .property
`,

	"types": `Values: null, booleans, numbers (64-bit floats), strings, functions,
and host objects provided by plugins.

Truthiness: null and false are false, 0 is false, everything else is true.

Equality (== and !=):
  null equals only null
  a number compared with a boolean compares truthiness
  other values compare by type, then value

'+' adds numbers or joins two strings. Other arithmetic and comparison
operators need numbers. Division or modulo by zero is a runtime error.
`,

	"flow": `Blocks open a new scope. Loops accept a block or a single statement.

  for (var i = 0; i < 3; i++) { if (i == 1) continue; print i; }

Functions are values and close over the scope they are created in:

  var counter = function() {
    var n = 0;
    return function() { return ++n; };
  };

Calling with the wrong number of arguments is a runtime error.
break and continue outside a loop, and return outside a function,
are rejected before the program runs.
`,

	"plugins": `import "Name";           installs the plugin's names as globals
import "Name" as alias;  binds a single value under alias

The built-in plugins and their members are listed below.
'toy policy' shows which of them the current policy allows.
`,

	"policy": `Plugins are gated by a YAML policy, looked up in order:
  ./.toypolicy.yaml
  ~/.toy/policy.yaml
  built-in default (every plugin except IO)

  allow: [Standard, Array, IO]   # "*" allows everything
  deny: [IO]                     # deny wins over allow
  preload: [Standard]            # imported before the first run
  log_level: debug

--unsafe-allow-all ignores the policy.
`,

	"diagnostics": `Codes:
  E_SCAN     unexpected character, unterminated string or comment
  E_PARSE    malformed syntax
  E_RESOLVE  scope errors found before running
  E_RUNTIME  errors raised while running
  E_ASSERT   a failed assert statement
  E_IO       a file could not be read
  E_DENIED   an import refused by the policy

Pretty output: [line N] Error at 'x': message
JSON output (default for run): one object per diagnostic.
Static errors stop a run before anything executes.
`,

	"examples": `Fibonacci:

  var fib = function(n) { return n < 2 ? n : fib(n - 1) + fib(n - 2); };
  print fib(20);

Arrays:

  import "Array";
  var a = Array(3, 1, 2);
  a.Sort(function(x, y) { return x - y; });
  print a;          // [1,2,3]
  print a[::-1];    // [3,2,1]

Dictionaries:

  import "Dictionary";
  var d = Dictionary();
  d["k"] = 1;
  print d.Contains("k");
`,
}

// MatchTopic finds a topic by exact name or unique prefix.
func MatchTopic(query string) (string, string, error) {
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}
	var matches []string
	for _, name := range TopicList {
		if strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return "", "", errors.Errorf("unknown help topic %q (topics: %s)", query, strings.Join(TopicList, ", "))
	case 1:
		return matches[0], Topics[matches[0]], nil
	}
	return "", "", errors.Errorf("ambiguous help topic %q matches %s", query, strings.Join(matches, ", "))
}

// PluginIndex lists every plugin in r with its members.
func PluginIndex(r *plugins.Registry) string {
	var b strings.Builder
	policy := r.Policy()
	for _, def := range r.All() {
		status := ""
		if !policy.IsAllowed(def.Name) {
			status = " (denied)"
		}
		fmt.Fprintf(&b, "%s%s: %s\n", def.Name, status, def.Summary)
		members := append([]string(nil), def.Members...)
		sort.Strings(members)
		fmt.Fprintf(&b, "  %s\n", strings.Join(members, "  "))
	}
	fmt.Fprintf(&b, "\nTotal: %d plugins\n", len(r.Names()))
	return b.String()
}

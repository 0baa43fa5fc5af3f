package help

import (
	"strings"
	"testing"

	"github.com/thomasrohde/toy/pkg/capabilities"
	"github.com/thomasrohde/toy/pkg/plugins"
)

func TestQUICKREFNonEmpty(t *testing.T) {
	if len(QUICKREF) == 0 {
		t.Fatal("QUICKREF is empty")
	}
}

func TestQUICKREFContainsVersion(t *testing.T) {
	if !strings.Contains(QUICKREF, "v0.1") {
		t.Error("QUICKREF does not contain version string v0.1")
	}
	if !strings.HasPrefix(Version, "0.1") {
		t.Errorf("Version %q does not match QUICKREF", Version)
	}
}

func TestQUICKREFListsTopics(t *testing.T) {
	for _, topic := range TopicList {
		if !strings.Contains(QUICKREF, topic) {
			t.Errorf("QUICKREF does not mention topic %q", topic)
		}
	}
}

func TestTopicListMatchesTopics(t *testing.T) {
	for _, name := range TopicList {
		if _, ok := Topics[name]; !ok {
			t.Errorf("TopicList entry %q not in Topics map", name)
		}
	}
}

func TestAllExpectedTopics(t *testing.T) {
	expected := []string{"syntax", "types", "flow", "plugins", "policy", "diagnostics", "examples"}
	for _, e := range expected {
		if _, ok := Topics[e]; !ok {
			t.Errorf("missing expected topic %q", e)
		}
	}
	if len(Topics) != len(expected) {
		t.Errorf("expected %d topics, got %d", len(expected), len(Topics))
	}
}

func TestTopicsNonEmpty(t *testing.T) {
	for name, content := range Topics {
		if len(content) == 0 {
			t.Errorf("topic %q has empty content", name)
		}
	}
}

func TestMatchTopicExact(t *testing.T) {
	name, content, err := MatchTopic("syntax")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "syntax" {
		t.Errorf("expected name 'syntax', got %q", name)
	}
	if content == "" {
		t.Error("expected non-empty content")
	}
}

func TestMatchTopicPrefix(t *testing.T) {
	name, _, err := MatchTopic("diag")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "diagnostics" {
		t.Errorf("expected 'diagnostics', got %q", name)
	}
}

func TestMatchTopicPrefixExamples(t *testing.T) {
	name, _, err := MatchTopic("ex")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "examples" {
		t.Errorf("expected 'examples', got %q", name)
	}
}

func TestMatchTopicAmbiguous(t *testing.T) {
	_, _, err := MatchTopic("p")
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("expected ambiguity error for 'p', got %v", err)
	}
}

func TestMatchTopicUnknown(t *testing.T) {
	for _, q := range []string{"nonexistent", "constructor", "__proto__"} {
		if _, _, err := MatchTopic(q); err == nil {
			t.Errorf("expected error for %q", q)
		}
	}
}

func TestPluginIndex(t *testing.T) {
	idx := PluginIndex(plugins.NewDefault(capabilities.Default()))
	if !strings.Contains(idx, "Total: 7 plugins") {
		t.Errorf("PluginIndex should report 7 plugins, got:\n%s", idx)
	}
	if !strings.Contains(idx, "IO (denied)") {
		t.Error("PluginIndex should mark IO as denied under the default policy")
	}
	if !strings.Contains(idx, "Sort(cmp)") {
		t.Error("PluginIndex missing Array members")
	}
}

func TestPluginIndexAllowAll(t *testing.T) {
	idx := PluginIndex(plugins.NewDefault(capabilities.AllowAll()))
	if strings.Contains(idx, "(denied)") {
		t.Errorf("nothing should be denied, got:\n%s", idx)
	}
}

func TestMatchTopicAllExact(t *testing.T) {
	for _, topic := range TopicList {
		name, content, err := MatchTopic(topic)
		if err != nil {
			t.Errorf("MatchTopic(%q) error: %v", topic, err)
			continue
		}
		if name != topic {
			t.Errorf("MatchTopic(%q) returned name %q", topic, name)
		}
		if content == "" {
			t.Errorf("MatchTopic(%q) returned empty content", topic)
		}
	}
}

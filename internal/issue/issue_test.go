// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func passthroughRender(t *testing.T) {
	t.Helper()
	original := render
	t.Cleanup(func() { render = original })
	render = func(in string, _ string) (string, error) { return in, nil }
}

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{GameDirNotFoundId, false, "Game directory not found"},
		{PlayerConfigMissingId, false, "config_player.xml not found"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{DependencyCycleId, false, "Dependency cycle"},
		{MissingDependencyId, false, "Required package is not active"},
		{ConflictId, false, "Conflicting packages"},
		{OverrideId, false, "overrides content"},
		{PermissionDeniedId, false, "Permission denied"},
		{CacheCorruptId, false, "cache is unreadable"},
		{PresetNotFoundId, false, "Preset not found"},
		{WatchLimitId, false, "max_user_watches"},
		{Id(9999), true, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			issue := Get(tt.id)
			if tt.wantNil {
				if issue != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}
			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if issue.Id() != tt.id {
				t.Errorf("Id() = %d, want %d", issue.Id(), tt.id)
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain %q", tt.id, tt.contains)
			}
		})
	}
}

func TestValues(t *testing.T) {
	issues := Values()
	if len(issues) != int(WatchLimitId) {
		t.Fatalf("Values() returned %d issues, want %d", len(issues), WatchLimitId)
	}
	for i, issue := range issues {
		if issue.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, issue.Id(), i+1)
		}
		if issue.Name() == "" {
			t.Errorf("issue %d has no name", issue.Id())
		}
	}
}

func TestLookup(t *testing.T) {
	seen := map[string]bool{}
	for _, issue := range Values() {
		if seen[issue.Name()] {
			t.Errorf("duplicate issue name %q", issue.Name())
		}
		seen[issue.Name()] = true

		got, ok := Lookup(issue.Name())
		if !ok || got != issue {
			t.Errorf("Lookup(%q) = %v, %v", issue.Name(), got, ok)
		}
	}
	if _, ok := Lookup("nope"); ok {
		t.Error("Lookup(nope) succeeded")
	}
}

func TestIssue_LinksAreCloned(t *testing.T) {
	issue := &Issue{id: Id(9999), docLinks: []HttpLink{"https://docs.example.com"}}
	links := issue.DocLinks()
	links[0] = "modified"
	if issue.DocLinks()[0] != "https://docs.example.com" {
		t.Error("DocLinks() should return a clone")
	}
}

func TestIssue_Render_WithLinks(t *testing.T) {
	passthroughRender(t)

	testIssue := &Issue{
		id:       Id(9999),
		mdMsg:    "# Test Issue\n\nThis is a test.",
		docLinks: []HttpLink{"https://docs.example.com"},
		extLinks: []HttpLink{"https://external.example.com"},
	}

	rendered, err := testIssue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	for _, want := range []string{"See also", "https://docs.example.com", "https://external.example.com"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("Render() output missing %q", want)
		}
	}
}

func TestIssue_Render_NoLinks(t *testing.T) {
	passthroughRender(t)

	testIssue := &Issue{id: Id(9998), mdMsg: "# Test Issue\n\nNo links here."}
	rendered, err := testIssue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if strings.Contains(rendered, "See also") {
		t.Error("Render() without links should not contain 'See also'")
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	passthroughRender(t)

	for _, issue := range Values() {
		rendered, err := issue.Render("")
		if err != nil {
			t.Errorf("Issue %d failed to render: %v", issue.Id(), err)
		}
		if rendered == "" {
			t.Errorf("Issue %d rendered to empty string", issue.Id())
		}
	}
}

package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"todotui/config"
	"todotui/model"
	"todotui/todotxt"
)

func TestPaneWidthsPreferNarrowLeftPanel(t *testing.T) {
	left, right := paneWidths(96)
	if left >= right {
		t.Fatalf("expected left panel to be narrower than right (left=%d right=%d)", left, right)
	}
	if left+right != 96 {
		t.Fatalf("expected pane widths to fill available width=96, got left=%d right=%d", left, right)
	}
	if left < 22 || left > 30 {
		t.Fatalf("expected sidebar width within [22,30], got %d", left)
	}
}

func TestPaneWidthsSmallTerminalStillValid(t *testing.T) {
	left, right := paneWidths(40)
	if left < 12 || right < 20 {
		t.Fatalf("expected minimum usable pane widths, got left=%d right=%d", left, right)
	}
	if left+right > 40 {
		t.Fatalf("expected panes not to exceed available width=40, got left=%d right=%d", left, right)
	}
}

func TestWindowBoundsCentersCursor(t *testing.T) {
	cases := []struct {
		count, cursor, max int
		start, end         int
	}{
		{count: 3, cursor: 1, max: 5, start: 0, end: 3},
		{count: 10, cursor: 0, max: 5, start: 0, end: 5},
		{count: 10, cursor: 5, max: 5, start: 3, end: 8},
		{count: 10, cursor: 9, max: 5, start: 5, end: 10},
		{count: 0, cursor: 0, max: 5, start: 0, end: 0},
	}
	for _, c := range cases {
		start, end := windowBounds(c.count, c.cursor, c.max)
		if start != c.start || end != c.end {
			t.Fatalf("windowBounds(%d,%d,%d) = (%d,%d), expected (%d,%d)",
				c.count, c.cursor, c.max, start, end, c.start, c.end)
		}
	}
}

func TestTruncateRunesAddsEllipsis(t *testing.T) {
	if got := truncateRunes("hello", 10); got != "hello" {
		t.Fatalf("expected short string unchanged, got %q", got)
	}
	if got := truncateRunes("hello world", 8); got != "hello w…" {
		t.Fatalf("expected truncated string with ellipsis, got %q", got)
	}
	if got := truncateRunes("hello", 1); got != "…" {
		t.Fatalf("expected bare ellipsis at width 1, got %q", got)
	}
	if got := truncateRunes("hello", 0); got != "" {
		t.Fatalf("expected empty string at width 0, got %q", got)
	}
}

func TestTaskElementsOrderAndLabels(t *testing.T) {
	task := model.Task{
		ID:           1,
		Priority:     "A",
		CreationDate: "2024-01-05",
		Text:         "write report +Work @desk due:2030-01-01",
		Projects:     []string{"Work"},
		Contexts:     []string{"desk"},
		Metadata:     map[string]string{"due": "2030-01-01"},
	}

	els := taskElements(task)
	labels := make([]string, len(els))
	for i, el := range els {
		labels[i] = el.label
	}
	expected := []string{"[ ]", "(A)", "2024-01-05", "write report", "+Work", "@desk", "due:2030-01-01"}
	if strings.Join(labels, "|") != strings.Join(expected, "|") {
		t.Fatalf("unexpected element labels:\n got %v\nwant %v", labels, expected)
	}

	if els[0].kind != elemCheckbox || els[len(els)-1].kind != elemMeta {
		t.Fatalf("unexpected element kinds at edges: first=%v last=%v", els[0].kind, els[len(els)-1].kind)
	}
}

func TestTaskElementsAlwaysCarryPrioritySlot(t *testing.T) {
	els := taskElements(model.Task{ID: 1, Text: "plain"})
	if len(els) != 3 {
		t.Fatalf("expected checkbox, priority slot and text, got %d elements", len(els))
	}
	if els[1].kind != elemPriority || els[1].label != "( )" {
		t.Fatalf("expected empty priority slot, got kind=%v label=%q", els[1].kind, els[1].label)
	}
}

func TestBareTextStripsTagsAndMetadata(t *testing.T) {
	got := bareText("call mom +Family @phone due:2030-01-01 rec:1w soon")
	if got != "call mom soon" {
		t.Fatalf("expected tags and metadata stripped, got %q", got)
	}

	if got := bareText("lone + and @ stay 10:30"); got != "lone + and @ stay" {
		t.Fatalf("expected bare sigils kept and time-like token treated as metadata, got %q", got)
	}
}

func TestFilterLabelNamesEveryKind(t *testing.T) {
	cases := map[string]model.Filter{
		"priority (A)":   {Kind: model.FilterPriority, Value: "A"},
		"+Work":          {Kind: model.FilterProject, Value: "Work"},
		"@home":          {Kind: model.FilterContext, Value: "home"},
		"due or overdue": {Kind: model.FilterDue},
		"done today":     {Kind: model.FilterDoneToday},
		"active only":    {Kind: model.FilterActive},
		"none":           {},
	}
	for want, f := range cases {
		if got := filterLabel(f); got != want {
			t.Fatalf("filterLabel(%+v) = %q, expected %q", f, got, want)
		}
	}
}

func TestViewRendersAllPanels(t *testing.T) {
	m := newTestModel(t, "(A) pay bills +Finance\nwater plants @home\n")

	view := ansi.Strip(m.View())
	for _, want := range []string{
		"todotui",
		"sort: priority",
		"Tasks (2/2)",
		"Priorities",
		"Stats",
		"Projects",
		"Contexts",
		"+Finance",
		"@home",
		"pay bills",
		"▸",
		"(A) 1",
		"(B) 0",
		"due or overdue",
		"active",
	} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q, view:\n%s", want, view)
		}
	}
}

func TestViewBeforeFirstResizeShowsPlaceholder(t *testing.T) {
	svc := newTestService("a task\n")
	m := NewModel(svc, config.Default(), "", todotxt.FormatNone)
	if got := m.View(); got != "loading..." {
		t.Fatalf("expected loading placeholder before resize, got %q", got)
	}
}

func TestViewEmptyStates(t *testing.T) {
	m := newTestModel(t, "")
	if view := ansi.Strip(m.View()); !strings.Contains(view, "No tasks yet. Press n to add one.") {
		t.Fatalf("expected empty-file hint, view:\n%s", view)
	}

	m = newTestModel(t, "walk dog\n")
	m.svc.SetFilter(model.Filter{Kind: model.FilterProject, Value: "Nope"})
	if view := ansi.Strip(m.View()); !strings.Contains(view, "No tasks match the current filter.") {
		t.Fatalf("expected filter empty state, view:\n%s", view)
	}

	m = newTestModel(t, "walk dog\n")
	m.svc.SetSearch("zzz")
	if view := ansi.Strip(m.View()); !strings.Contains(view, "No tasks match the search.") {
		t.Fatalf("expected search empty state, view:\n%s", view)
	}

	m = newTestModel(t, "x 2024-01-01 done chore\n")
	if view := ansi.Strip(m.View()); !strings.Contains(view, "All tasks are completed. Press v to show them.") {
		t.Fatalf("expected completed-hidden hint, view:\n%s", view)
	}
}

func TestViewShowsActiveFilterAndSearchInHeader(t *testing.T) {
	m := newTestModel(t, "walk dog +Home\n")
	m.svc.SetFilter(model.Filter{Kind: model.FilterProject, Value: "Home"})
	m.svc.SetSearch("dog")

	view := ansi.Strip(m.View())
	if !strings.Contains(view, "filter: +Home") {
		t.Fatalf("expected header filter summary, view:\n%s", view)
	}
	if !strings.Contains(view, "search: \"dog\"") {
		t.Fatalf("expected header search summary, view:\n%s", view)
	}
}

func TestViewMarksOverdueTasks(t *testing.T) {
	m := newTestModel(t, "file taxes due:2000-01-01\n")

	lineWith := func(view, substr string) string {
		for _, ln := range strings.Split(view, "\n") {
			if strings.Contains(ln, substr) {
				return ln
			}
		}
		return ""
	}

	before := lineWith(ansi.Strip(m.View()), "due:2000-01-01")
	if before == "" {
		t.Fatalf("expected due metadata rendered")
	}

	// The highlight only changes styling, so flipping it off must keep
	// the task row identical once colors are stripped.
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'o'}})
	if m.showOverdue {
		t.Fatalf("expected o to disable the overdue highlight")
	}
	after := lineWith(ansi.Strip(m.View()), "due:2000-01-01")
	if after != before {
		t.Fatalf("expected identical stripped task row with highlight off:\n before %q\n after  %q", before, after)
	}
}

func TestPromptLineRendersPerMode(t *testing.T) {
	m := newTestModel(t, "walk dog\n")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	if view := ansi.Strip(m.View()); !strings.Contains(view, "New task:") {
		t.Fatalf("expected new-task prompt, view:\n%s", view)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if view := ansi.Strip(m.View()); !strings.Contains(view, "Delete \"walk dog\"? [y/N]") {
		t.Fatalf("expected delete confirmation prompt, view:\n%s", view)
	}
}

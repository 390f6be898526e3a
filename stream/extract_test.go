package stream

import (
	"testing"
)

func extractAll(t *testing.T, snap string, seen *dedupTracker) []Event {
	t.Helper()

	if seen == nil {
		seen = newDedupTracker()
	}
	raw := RawSnapshot(snap)
	events := extractMessages(raw, seen)
	events = append(events, extractTodos(raw)...)
	events = append(events, extractWorkspace(raw, "/work")...)
	events = append(events, extractSubagents(raw)...)
	events = append(events, extractInterrupt(raw)...)
	return events
}

func TestExtractMessagesEmissionFilter(t *testing.T) {
	cases := []struct {
		name string
		snap string
		want int
	}{
		{
			name: "assistant with text content",
			snap: `{"messages":[{"id":"m1","type":"ai","content":"hello"}]}`,
			want: 1,
		},
		{
			name: "tool role suppressed",
			snap: `{"messages":[{"id":"m1","type":"tool","content":"result"}]}`,
			want: 0,
		},
		{
			name: "human role suppressed",
			snap: `{"messages":[{"id":"m1","type":"human","content":"hi"}]}`,
			want: 0,
		},
		{
			name: "assistant with empty content suppressed",
			snap: `{"messages":[{"id":"m1","type":"ai","content":""}]}`,
			want: 0,
		},
		{
			name: "assistant with only tool call blocks suppressed",
			snap: `{"messages":[{"id":"m1","type":"ai","content":[{"type":"tool_use","name":"ls"}]}]}`,
			want: 0,
		},
		{
			name: "unknown tag defaults to assistant",
			snap: `{"messages":[{"id":"m1","content":"hello"}]}`,
			want: 1,
		},
		{
			name: "messages field absent",
			snap: `{}`,
			want: 0,
		},
		{
			name: "messages field wrong type",
			snap: `{"messages":"nope"}`,
			want: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events := extractMessages(RawSnapshot(tc.snap), newDedupTracker())
			if len(events) != tc.want {
				t.Fatalf("expected %d message events, got %d", tc.want, len(events))
			}
		})
	}
}

func TestExtractMessagesContentBlockConcatenation(t *testing.T) {
	snap := `{"messages":[{"id":"m1","type":"ai","content":[
		{"type":"text","text":"a"},
		{"type":"image"},
		{"type":"text","text":"b"}
	]}]}`

	events := extractMessages(RawSnapshot(snap), newDedupTracker())
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	msg := events[0].(MessageEvent)
	if msg.Content != "ab" {
		t.Fatalf("expected content %q, got %q", "ab", msg.Content)
	}
	if msg.Role != RoleAssistant {
		t.Fatalf("expected assistant role, got %s", msg.Role)
	}
}

func TestExtractMessagesDedup(t *testing.T) {
	seen := newDedupTracker()
	snap := RawSnapshot(`{"messages":[{"id":"m1","type":"ai","content":"hello"}]}`)

	first := extractMessages(snap, seen)
	if len(first) != 1 {
		t.Fatalf("expected 1 event on first extraction, got %d", len(first))
	}
	second := extractMessages(snap, seen)
	if len(second) != 0 {
		t.Fatalf("expected 0 events on repeated id, got %d", len(second))
	}

	// A later snapshot with the same id plus a new message emits only the
	// new one.
	later := RawSnapshot(`{"messages":[
		{"id":"m1","type":"ai","content":"hello"},
		{"id":"m2","type":"ai","content":"world"}
	]}`)
	third := extractMessages(later, seen)
	if len(third) != 1 {
		t.Fatalf("expected 1 event, got %d", len(third))
	}
	if third[0].(MessageEvent).ID != "m2" {
		t.Fatalf("expected m2, got %s", third[0].(MessageEvent).ID)
	}
}

func TestExtractMessagesGeneratedIDs(t *testing.T) {
	seen := newDedupTracker()
	snap := RawSnapshot(`{"messages":[{"type":"ai","content":"no id"}]}`)

	events := extractMessages(snap, seen)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].(MessageEvent).ID == "" {
		t.Fatalf("expected a generated id")
	}
}

func TestExtractMessagesToolCallsCarried(t *testing.T) {
	snap := RawSnapshot(`{"messages":[{"id":"m1","type":"ai","content":"run it","tool_calls":[{"id":"c1","name":"bash"}]}]}`)

	events := extractMessages(snap, newDedupTracker())
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	msg := events[0].(MessageEvent)
	if len(msg.ToolCalls) == 0 {
		t.Fatalf("expected tool calls to be carried")
	}
}

func TestExtractTodos(t *testing.T) {
	cases := []struct {
		name string
		snap string
		want int // -1 means no event
	}{
		{name: "absent field", snap: `{}`, want: -1},
		{name: "wrong type", snap: `{"todos":{"a":1}}`, want: -1},
		{name: "empty list", snap: `{"todos":[]}`, want: -1},
		{name: "blank entries get defaults", snap: `{"todos":[{},{}]}`, want: 2},
		{name: "populated", snap: `{"todos":[{"id":"t1","content":"do","status":"in_progress"}]}`, want: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events := extractTodos(RawSnapshot(tc.snap))
			if tc.want < 0 {
				if len(events) != 0 {
					t.Fatalf("expected no event, got %d", len(events))
				}
				return
			}
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			items := events[0].(TodosEvent).Items
			if len(items) != tc.want {
				t.Fatalf("expected %d items, got %d", tc.want, len(items))
			}
		})
	}
}

func TestExtractTodosDefaults(t *testing.T) {
	events := extractTodos(RawSnapshot(`{"todos":[{"status":"bogus"}]}`))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	todo := events[0].(TodosEvent).Items[0]
	if todo.ID == "" {
		t.Fatalf("expected a generated id")
	}
	if todo.Content != "" {
		t.Fatalf("expected empty content default, got %q", todo.Content)
	}
	if todo.Status != TodoPending {
		t.Fatalf("expected pending default, got %s", todo.Status)
	}
}

func TestExtractWorkspaceSuppression(t *testing.T) {
	cases := []string{
		`{}`,
		`{"files":{}}`,
		`{"files":[]}`,
		`{"files":"nope"}`,
	}
	for _, snap := range cases {
		if events := extractWorkspace(RawSnapshot(snap), "/work"); len(events) != 0 {
			t.Fatalf("expected no workspace event for %s, got %d", snap, len(events))
		}
	}
}

func TestExtractWorkspaceKeyedMapping(t *testing.T) {
	snap := RawSnapshot(`{"files":{"a.txt":{"content":"hi"}}}`)

	events := extractWorkspace(snap, "/work")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ws := events[0].(WorkspaceEvent)
	if ws.Path != "/work" {
		t.Fatalf("expected default path /work, got %q", ws.Path)
	}
	if len(ws.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(ws.Files))
	}
	entry := ws.Files[0]
	if entry.Path != "a.txt" || entry.IsDir {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Size == nil || *entry.Size != 2 {
		t.Fatalf("expected size 2, got %v", entry.Size)
	}
}

func TestExtractWorkspaceMappingWithoutContentOmitsSize(t *testing.T) {
	snap := RawSnapshot(`{"files":{"b.txt":{"last_modified":"2026-01-01T00:00:00Z"}}}`)

	events := extractWorkspace(snap, "/work")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if size := events[0].(WorkspaceEvent).Files[0].Size; size != nil {
		t.Fatalf("expected omitted size, got %d", *size)
	}
}

func TestExtractWorkspaceListForm(t *testing.T) {
	snap := RawSnapshot(`{"path":"/project","files":[
		{"path":"src","is_dir":true},
		{"path":"src/main.go","size":120},
		{"size":5}
	]}`)

	events := extractWorkspace(snap, "/work")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ws := events[0].(WorkspaceEvent)
	if ws.Path != "/project" {
		t.Fatalf("expected snapshot path, got %q", ws.Path)
	}
	// The entry without a path is dropped.
	if len(ws.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(ws.Files))
	}
	if !ws.Files[0].IsDir {
		t.Fatalf("expected src to be a directory")
	}
	if ws.Files[1].Size == nil || *ws.Files[1].Size != 120 {
		t.Fatalf("expected explicit size 120, got %v", ws.Files[1].Size)
	}
}

func TestExtractSubagents(t *testing.T) {
	if events := extractSubagents(RawSnapshot(`{"subagents":[]}`)); len(events) != 0 {
		t.Fatalf("expected no event for empty list")
	}

	snap := RawSnapshot(`{"subagents":[
		{"id":"s1","name":"researcher","status":"running","started_at":"2026-08-01T10:00:00Z"},
		{"type":"coder"},
		{}
	]}`)
	events := extractSubagents(snap)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	items := events[0].(SubagentsEvent).Items
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Status != SubagentRunning || items[0].StartedAt == nil {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].Name != "coder" {
		t.Fatalf("expected name fallback to type, got %q", items[1].Name)
	}
	if items[2].Name != "Subagent" || items[2].Status != SubagentPending {
		t.Fatalf("unexpected defaults: %+v", items[2])
	}
}

func TestExtractInterrupt(t *testing.T) {
	if events := extractInterrupt(RawSnapshot(`{}`)); len(events) != 0 {
		t.Fatalf("expected no event when field absent")
	}

	snap := RawSnapshot(`{"interrupt":{"id":"i1","tool_call":{"name":"rm","args":{"path":"/tmp/x"}}}}`)
	events := extractInterrupt(snap)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0].(InterruptEvent)
	if ev.ID != "i1" {
		t.Fatalf("expected id i1, got %s", ev.ID)
	}
	if len(ev.ToolCall) == 0 {
		t.Fatalf("expected tool call payload")
	}
	if len(ev.AllowedDecisions) != 3 {
		t.Fatalf("expected the fixed decision set, got %v", ev.AllowedDecisions)
	}
}

func TestExtractorsTotalOnMalformedSnapshot(t *testing.T) {
	snaps := []string{
		`not even json`,
		`{"messages":[42,"x",null],"todos":[null],"files":17,"subagents":[[]],"interrupt":null}`,
		`{"messages":[{"content":{"weird":true},"type":12}]}`,
		``,
	}

	for _, snap := range snaps {
		// Must not panic; malformed fields degrade to nothing.
		extractAll(t, snap, nil)
	}
}

func TestExtractorFixedOrder(t *testing.T) {
	snap := `{
		"messages":[{"id":"m1","type":"ai","content":"hi"}],
		"todos":[{"id":"t1"}],
		"files":{"a.txt":{"content":"x"}},
		"subagents":[{"id":"s1"}],
		"interrupt":{"id":"i1"}
	}`

	events := extractAll(t, snap, nil)
	want := []EventType{EventMessage, EventTodos, EventWorkspace, EventSubagents, EventInterrupt}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, ev := range events {
		if ev.Type() != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], ev.Type())
		}
	}
}

package stream

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Extractors translate one raw snapshot into typed events. Each extractor
// is total: missing or ill-typed fields degrade to "produce nothing" or to
// safe defaults, never to a fault. The session applies them in a fixed
// order per snapshot: messages, todos, workspace, subagents, interrupt.

// roleForTag maps the runtime's message tag to a wire role. Unknown or
// absent tags default to assistant.
func roleForTag(tag string) Role {
	switch tag {
	case "human":
		return RoleUser
	case "ai":
		return RoleAssistant
	case "system":
		return RoleSystem
	case "tool":
		return RoleTool
	default:
		return RoleAssistant
	}
}

// textContent flattens a message content field to plain text. A string is
// used verbatim; a block list concatenates the text of blocks whose type
// is "text", in order, ignoring every other block kind. Any other shape
// yields empty content.
func textContent(content gjson.Result) string {
	switch {
	case content.Type == gjson.String:
		return content.String()
	case content.IsArray():
		var sb strings.Builder
		for _, block := range content.Array() {
			if strField(block, "type", "") != "text" {
				continue
			}
			sb.WriteString(block.Get("text").String())
		}
		return sb.String()
	default:
		return ""
	}
}

// extractMessages emits one MessageEvent per assistant message with
// non-empty text content that has not been emitted before in this session.
// Identifier generation and dedup are two separate steps: generate-if-
// absent first, then check-and-record against the tracker.
func extractMessages(snap RawSnapshot, seen *dedupTracker) []Event {
	var events []Event
	for _, item := range snap.list("messages") {
		id := strField(item, "id", "")
		if id == "" {
			id = uuid.New().String()
		}
		// Already emitted; skip without re-deriving content.
		if seen.contains(id) {
			continue
		}
		if roleForTag(strField(item, "type", "")) != RoleAssistant {
			continue
		}
		content := textContent(item.Get("content"))
		if content == "" {
			continue
		}
		seen.record(id)

		msg := MessageEvent{
			ID:        id,
			Role:      RoleAssistant,
			Content:   content,
			CreatedAt: timestampOr(item.Get("created_at"), time.Now()),
		}
		if calls := item.Get("tool_calls"); calls.Exists() {
			msg.ToolCalls = json.RawMessage(calls.Raw)
		}
		events = append(events, msg)
	}
	return events
}

// extractTodos emits a single TodosEvent with every item of the todo list.
// An absent, non-list, or empty field yields no event.
func extractTodos(snap RawSnapshot) []Event {
	items := snap.list("todos")
	if len(items) == 0 {
		return nil
	}

	todos := make([]Todo, 0, len(items))
	for _, item := range items {
		id := strField(item, "id", "")
		if id == "" {
			id = uuid.New().String()
		}
		todos = append(todos, Todo{
			ID:      id,
			Content: strField(item, "content", ""),
			Status:  todoStatus(strField(item, "status", "")),
		})
	}
	return []Event{TodosEvent{Items: todos}}
}

func todoStatus(s string) TodoStatus {
	switch TodoStatus(s) {
	case TodoPending, TodoInProgress, TodoCompleted, TodoCancelled:
		return TodoStatus(s)
	default:
		return TodoPending
	}
}

// extractWorkspace emits a WorkspaceEvent when the snapshot carries a
// non-empty file listing. Files arrive either as a keyed mapping
// (path -> {content, last_modified}) or, for older runtimes, as a list of
// entries with explicit path/is_dir/size.
func extractWorkspace(snap RawSnapshot, defaultPath string) []Event {
	var files []FileEntry

	raw := snap.field("files")
	switch {
	case raw.IsObject():
		raw.ForEach(func(key, value gjson.Result) bool {
			entry := FileEntry{Path: key.String()}
			if content := value.Get("content"); content.Type == gjson.String {
				size := len([]rune(content.String()))
				entry.Size = &size
			}
			files = append(files, entry)
			return true
		})
	case raw.IsArray():
		for _, item := range raw.Array() {
			path := strField(item, "path", "")
			if path == "" {
				continue
			}
			entry := FileEntry{
				Path:  path,
				IsDir: item.Get("is_dir").Bool(),
			}
			if sz := item.Get("size"); sz.Type == gjson.Number {
				size := int(sz.Int())
				entry.Size = &size
			}
			files = append(files, entry)
		}
	}

	if len(files) == 0 {
		return nil
	}
	return []Event{WorkspaceEvent{
		Files: files,
		Path:  snap.stringOr("path", defaultPath),
	}}
}

// extractSubagents emits a SubagentsEvent when the subagent list is
// non-empty.
func extractSubagents(snap RawSnapshot) []Event {
	items := snap.list("subagents")
	if len(items) == 0 {
		return nil
	}

	subs := make([]Subagent, 0, len(items))
	for _, item := range items {
		id := strField(item, "id", "")
		if id == "" {
			id = uuid.New().String()
		}
		name := strField(item, "name", "")
		if name == "" {
			name = strField(item, "type", "Subagent")
		}
		sub := Subagent{
			ID:          id,
			Name:        name,
			Description: strField(item, "description", ""),
			Status:      subagentStatus(strField(item, "status", "")),
		}
		if t := timestamp(item.Get("started_at")); t != nil {
			sub.StartedAt = t
		}
		if t := timestamp(item.Get("completed_at")); t != nil {
			sub.CompletedAt = t
		}
		subs = append(subs, sub)
	}
	return []Event{SubagentsEvent{Items: subs}}
}

func subagentStatus(s string) SubagentStatus {
	switch SubagentStatus(s) {
	case SubagentPending, SubagentRunning, SubagentCompleted, SubagentFailed:
		return SubagentStatus(s)
	default:
		return SubagentPending
	}
}

// extractInterrupt emits exactly one InterruptEvent when the snapshot
// signals a pause awaiting a decision; absence emits nothing.
func extractInterrupt(snap RawSnapshot) []Event {
	raw := snap.field("interrupt")
	if !raw.Exists() || raw.Type == gjson.Null {
		return nil
	}

	id := strField(raw, "id", "")
	if id == "" {
		id = uuid.New().String()
	}
	ev := InterruptEvent{
		ID:               id,
		AllowedDecisions: AllowedDecisions,
	}
	if call := raw.Get("tool_call"); call.Exists() {
		ev.ToolCall = json.RawMessage(call.Raw)
	} else if raw.IsObject() {
		ev.ToolCall = json.RawMessage(raw.Raw)
	}
	return []Event{ev}
}

// timestamp parses an optional time field; nil when absent or malformed.
func timestamp(v gjson.Result) *time.Time {
	if v.Type != gjson.String {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v.String())
	if err != nil {
		return nil
	}
	return &t
}

func timestampOr(v gjson.Result, def time.Time) time.Time {
	if t := timestamp(v); t != nil {
		return *t
	}
	return def
}

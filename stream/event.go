package stream

import (
	"encoding/json"
	"time"
)

// EventType tags the events a session pushes to its transport.
type EventType string

const (
	EventMessage   EventType = "message"
	EventTodos     EventType = "todos"
	EventWorkspace EventType = "workspace"
	EventSubagents EventType = "subagents"
	EventInterrupt EventType = "interrupt"
	EventDone      EventType = "done"
	EventError     EventType = "error"
)

// Event is one member of the wire contract between a session and its
// consumer. Nothing else crosses the boundary.
type Event interface {
	Type() EventType
}

// Envelope is the JSON shape an event travels in.
type Envelope struct {
	Type EventType `json:"type"`
	Data Event     `json:"data"`
}

// Wrap packs an event into its wire envelope.
func Wrap(ev Event) Envelope {
	return Envelope{Type: ev.Type(), Data: ev}
}

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// MessageEvent carries one assistant message with non-empty text content.
type MessageEvent struct {
	ID        string          `json:"id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	ToolCalls json.RawMessage `json:"tool_calls,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (MessageEvent) Type() EventType { return EventMessage }

// TodoStatus is the lifecycle state of one todo item.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
	TodoCancelled  TodoStatus = "cancelled"
)

// Todo is one entry of the agent's task list.
type Todo struct {
	ID      string     `json:"id"`
	Content string     `json:"content"`
	Status  TodoStatus `json:"status"`
}

// TodosEvent replaces the consumer's view of the task list.
type TodosEvent struct {
	Items []Todo `json:"items"`
}

func (TodosEvent) Type() EventType { return EventTodos }

// FileEntry describes one file in the agent's workspace.
type FileEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  *int   `json:"size,omitempty"`
}

// WorkspaceEvent replaces the consumer's view of the workspace. Never
// emitted with zero files.
type WorkspaceEvent struct {
	Files []FileEntry `json:"files"`
	Path  string      `json:"path"`
}

func (WorkspaceEvent) Type() EventType { return EventWorkspace }

// SubagentStatus is the lifecycle state of a spawned subagent.
type SubagentStatus string

const (
	SubagentPending   SubagentStatus = "pending"
	SubagentRunning   SubagentStatus = "running"
	SubagentCompleted SubagentStatus = "completed"
	SubagentFailed    SubagentStatus = "failed"
)

// Subagent describes one spawned subagent.
type Subagent struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Status      SubagentStatus `json:"status"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// SubagentsEvent replaces the consumer's view of active subagents.
type SubagentsEvent struct {
	Items []Subagent `json:"items"`
}

func (SubagentsEvent) Type() EventType { return EventSubagents }

// DecisionType is one of the fixed decisions a consumer may take on an
// interrupt.
type DecisionType string

const (
	DecisionApprove DecisionType = "approve"
	DecisionReject  DecisionType = "reject"
	DecisionEdit    DecisionType = "edit"
)

// AllowedDecisions is the fixed decision set carried by every interrupt.
var AllowedDecisions = []DecisionType{DecisionApprove, DecisionReject, DecisionEdit}

// InterruptEvent signals that the run is paused awaiting a decision on the
// pending tool call.
type InterruptEvent struct {
	ID               string          `json:"id"`
	ToolCall         json.RawMessage `json:"tool_call,omitempty"`
	AllowedDecisions []DecisionType  `json:"allowed_decisions"`
}

func (InterruptEvent) Type() EventType { return EventInterrupt }

// DoneReason distinguishes a cancelled run from a natural completion.
type DoneReason string

const (
	DoneCompleted DoneReason = "completed"
	DoneCancelled DoneReason = "cancelled"
)

// DoneEvent terminates a session that did not fault. Exactly one terminal
// event is pushed per session, always last.
type DoneEvent struct {
	Reason DoneReason      `json:"reason"`
	Result json.RawMessage `json:"result,omitempty"`
}

func (DoneEvent) Type() EventType { return EventDone }

// ErrorEvent terminates a session that faulted. When present, Done is not
// also sent.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) Type() EventType { return EventError }

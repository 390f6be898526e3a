package commands

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/smallnest/agentbridge/config"
	"github.com/smallnest/agentbridge/stream"
)

var (
	chatConfigPath string
	chatThread     string
	chatToken      string
)

// ChatCommand returns the chat command.
func ChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive client for a running gateway",
		Long: `Connect to a running gateway, invoke a thread, and render its event
stream. Interrupts can be answered with /approve, /reject, or
/edit <json>; /cancel stops the run.`,
		RunE: runChat,
	}
	cmd.Flags().StringVarP(&chatConfigPath, "config", "c", "", "Config file path")
	cmd.Flags().StringVar(&chatThread, "thread", "", "Thread id (random when empty)")
	cmd.Flags().StringVarP(&chatToken, "token", "t", "", "Authentication token")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(chatConfigPath)
	if err != nil {
		return err
	}

	threadID := chatThread
	if threadID == "" {
		threadID = uuid.New().String()
	}

	wsURL := url.URL{
		Scheme: "ws",
		Host:   fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port),
		Path:   cfg.Gateway.Path,
	}
	if chatToken != "" {
		q := wsURL.Query()
		q.Set("token", chatToken)
		wsURL.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return fmt.Errorf("connect gateway: %w", err)
	}
	defer conn.Close()

	fmt.Printf("connected to %s (thread %s)\n", wsURL.String(), threadID)
	fmt.Println("commands: /approve /reject /edit <json> /cancel /quit")

	client := &chatClient{conn: conn, threadID: threadID}

	done := make(chan struct{})
	go client.readLoop(done)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		UniqueEditLine:  true,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		select {
		case <-done:
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if quit := client.handleInput(line); quit {
			return nil
		}
	}
}

type chatClient struct {
	conn     *websocket.Conn
	threadID string
	nextID   int64
}

func (c *chatClient) handleInput(line string) bool {
	switch {
	case line == "/quit":
		return true
	case line == "/cancel":
		c.call("agent.cancel", map[string]interface{}{"thread_id": c.threadID})
	case line == "/approve":
		c.resume(stream.DecisionApprove, nil)
	case line == "/reject":
		c.resume(stream.DecisionReject, nil)
	case strings.HasPrefix(line, "/edit"):
		payload := strings.TrimSpace(strings.TrimPrefix(line, "/edit"))
		if payload == "" || !json.Valid([]byte(payload)) {
			fmt.Println("usage: /edit <json payload>")
			return false
		}
		c.resume(stream.DecisionEdit, json.RawMessage(payload))
	case strings.HasPrefix(line, "/"):
		fmt.Printf("unknown command: %s\n", line)
	default:
		c.call("agent.invoke", map[string]interface{}{
			"thread_id": c.threadID,
			"message":   line,
		})
	}
	return false
}

func (c *chatClient) resume(decision stream.DecisionType, payload json.RawMessage) {
	params := map[string]interface{}{
		"thread_id": c.threadID,
		"decision": map[string]interface{}{
			"type": decision,
		},
	}
	if payload != nil {
		params["decision"].(map[string]interface{})["payload"] = payload
	}
	c.call("agent.resume", params)
}

func (c *chatClient) call(method string, params map[string]interface{}) {
	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      strconv.FormatInt(atomic.AddInt64(&c.nextID, 1), 10),
		"method":  method,
		"params":  params,
	}
	if err := c.conn.WriteJSON(req); err != nil {
		fmt.Printf("send failed: %v\n", err)
	}
}

func (c *chatClient) readLoop(done chan<- struct{}) {
	defer close(done)

	for {
		var msg struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
			Result json.RawMessage `json:"result"`
			Error  *struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := c.conn.ReadJSON(&msg); err != nil {
			fmt.Println("\nconnection closed")
			return
		}

		switch {
		case msg.Error != nil:
			fmt.Printf("\n[error %d] %s\n", msg.Error.Code, msg.Error.Message)
		case msg.Method == "connected":
			// welcome notification, nothing to render
		case msg.Method != "":
			c.render(msg.Params)
		}
	}
}

// render prints one stream event notification.
func (c *chatClient) render(params json.RawMessage) {
	var env struct {
		Type stream.EventType `json:"type"`
		Data json.RawMessage  `json:"data"`
	}
	if err := json.Unmarshal(params, &env); err != nil {
		return
	}

	switch env.Type {
	case stream.EventMessage:
		var ev stream.MessageEvent
		if json.Unmarshal(env.Data, &ev) == nil {
			fmt.Printf("\n%s\n", ev.Content)
		}
	case stream.EventTodos:
		var ev stream.TodosEvent
		if json.Unmarshal(env.Data, &ev) == nil {
			fmt.Println("\n[todos]")
			for _, todo := range ev.Items {
				fmt.Printf("  [%s] %s\n", todo.Status, todo.Content)
			}
		}
	case stream.EventWorkspace:
		var ev stream.WorkspaceEvent
		if json.Unmarshal(env.Data, &ev) == nil {
			fmt.Printf("\n[workspace] %s (%d files)\n", ev.Path, len(ev.Files))
		}
	case stream.EventSubagents:
		var ev stream.SubagentsEvent
		if json.Unmarshal(env.Data, &ev) == nil {
			fmt.Println("\n[subagents]")
			for _, sub := range ev.Items {
				fmt.Printf("  %s (%s)\n", sub.Name, sub.Status)
			}
		}
	case stream.EventInterrupt:
		var ev stream.InterruptEvent
		if json.Unmarshal(env.Data, &ev) == nil {
			fmt.Printf("\n[interrupt %s] pending tool call: %s\n", ev.ID, string(ev.ToolCall))
			fmt.Println("answer with /approve, /reject, or /edit <json>")
		}
	case stream.EventDone:
		var ev stream.DoneEvent
		if json.Unmarshal(env.Data, &ev) == nil {
			fmt.Printf("\n[done] %s\n", ev.Reason)
		}
	case stream.EventError:
		var ev stream.ErrorEvent
		if json.Unmarshal(env.Data, &ev) == nil {
			fmt.Printf("\n[error] %s\n", ev.Message)
		}
	}
}

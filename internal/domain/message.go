package domain

import "strings"

// Role identifies the author of a message turn.
type Role string

const (
	// RoleUser is an end-user turn.
	RoleUser Role = "user"
	// RoleAssistant is a model turn.
	RoleAssistant Role = "assistant"
	// RoleSystem is a system instruction turn.
	RoleSystem Role = "system"
	// RoleTool is a tool observation turn.
	RoleTool Role = "tool"
)

// Message is one turn of a conversation.
type Message struct {
	Role      Role
	Content   string
	ToolCalls []ToolCall // assistant turns requesting tool execution
	ToolID    string     // tool turns: id of the call being answered
	ToolName  string     // tool turns: name of the tool that produced Content
}

// ToolCall is a model request to execute a named tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ParseHistoryRole maps backend history roles (USER, BOT, ASSISTANT, SYSTEM,
// any case) onto internal roles. BOT is an alias for assistant.
// Unknown roles return ok=false and are skipped by callers.
func ParseHistoryRole(s string) (Role, bool) {
	switch strings.ToUpper(s) {
	case "USER":
		return RoleUser, true
	case "BOT", "ASSISTANT":
		return RoleAssistant, true
	case "SYSTEM":
		return RoleSystem, true
	}
	return "", false
}

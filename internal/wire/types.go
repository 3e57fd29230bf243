package wire

// Role values carried in chat messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Action values recognized by the daemon.
const (
	ActionChat   = "chat"
	ActionPing   = "ping"
	ActionStatus = "status"
)

// Message is a single role-tagged turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the client-to-daemon payload. Temperature and MaxTokens are
// pointers so the dispatcher can tell "absent" from an explicit zero.
type Request struct {
	Action      string    `json:"action"`
	Messages    []Message `json:"messages,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// ChatResponse answers a successful chat request.
type ChatResponse struct {
	Response string `json:"response"`
	Tokens   int    `json:"tokens"`
}

// PingResponse answers a ping request.
type PingResponse struct {
	Status string `json:"status"`
	Action string `json:"action"`
}

// StatusResponse reports daemon runtime state. MemoryUsage is either an
// integer MiB count or the string "unknown".
type StatusResponse struct {
	Status           string `json:"status"`
	ModelLoaded      bool   `json:"model_loaded"`
	ClientsConnected int    `json:"clients_connected"`
	MemoryUsage      any    `json:"memory_usage"`
}

// ErrorResponse reports a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WarningResponse reports a request the daemon accepted but could not honor
// as asked, such as streaming over the request/response channel.
type WarningResponse struct {
	Warning string `json:"warning"`
}

// Reply is the union of every response shape, used by clients that decode
// without knowing which action produced the answer.
type Reply struct {
	Response         string `json:"response,omitempty"`
	Tokens           int    `json:"tokens,omitempty"`
	Status           string `json:"status,omitempty"`
	Action           string `json:"action,omitempty"`
	ModelLoaded      *bool  `json:"model_loaded,omitempty"`
	ClientsConnected *int   `json:"clients_connected,omitempty"`
	MemoryUsage      any    `json:"memory_usage,omitempty"`
	Error            string `json:"error,omitempty"`
	Warning          string `json:"warning,omitempty"`
}

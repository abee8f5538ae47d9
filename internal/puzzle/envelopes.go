package puzzle

// Client envelope types.
const (
	MsgJoinInstance  = "join_instance"
	MsgPresence      = "presence"
	MsgStartMatch    = "start_match"
	MsgStartTutorial = "start_tutorial"
	MsgPlayAgain     = "play_again"
	MsgAction        = "action"
	MsgRequestScan   = "request_scan"
)

// Server envelope types.
const (
	MsgJoined     = "joined"
	MsgStatePatch = "state_patch"
	MsgError      = "error"
)

// Inbound is any client envelope; Type selects which fields are read.
type Inbound struct {
	Type        string  `json:"type"`
	InstanceID  string  `json:"instanceId,omitempty"`
	UserID      string  `json:"userId,omitempty"`
	DisplayName string  `json:"displayName,omitempty"`
	Token       string  `json:"token,omitempty"`
	Status      string  `json:"status,omitempty"`
	Level       int     `json:"level,omitempty"`
	Action      *Action `json:"action,omitempty"`
}

// JoinedMsg confirms a join.
type JoinedMsg struct {
	Type       string `json:"type"`
	InstanceID string `json:"instanceId"`
	UserID     string `json:"userId"`
}

// StatePatchMsg carries the public state and, for its owner only, the brief.
type StatePatchMsg struct {
	Type         string        `json:"type"`
	State        StateView     `json:"state"`
	PrivateBrief *PrivateBrief `json:"privateBrief,omitempty"`
}

// ErrorMsg reports a rejected envelope to its sender.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func errorMsg(err error) ErrorMsg {
	return ErrorMsg{Type: MsgError, Message: err.Error()}
}

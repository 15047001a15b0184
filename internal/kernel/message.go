package kernel

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// protocolVersion is the Jupyter messaging protocol version spoken on the
// kernel channels. The protocol is a fixed external interface; only the
// message types the panel consumes are modelled here.
const protocolVersion = "5.3"

// Channel names on the kernel websocket.
const (
	channelShell = "shell"
	channelIOPub = "iopub"
)

// Message types consumed or produced by the bridge.
const (
	msgTypeExecuteRequest = "execute_request"
	msgTypeStream         = "stream"
	msgTypeDisplayData    = "display_data"
	msgTypeExecuteResult  = "execute_result"
	msgTypeError          = "error"
	msgTypeStatus         = "status"
)

// Header identifies a message and its session.
type Header struct {
	MsgID    string `json:"msg_id"`
	Username string `json:"username"`
	Session  string `json:"session"`
	MsgType  string `json:"msg_type"`
	Version  string `json:"version"`
	Date     string `json:"date"`
}

// Message is a Jupyter wire message as carried over the channels websocket.
// Content is kept raw and decoded per msg_type.
type Message struct {
	Header       Header          `json:"header"`
	ParentHeader Header          `json:"parent_header"`
	Metadata     map[string]any  `json:"metadata"`
	Content      json.RawMessage `json:"content"`
	Channel      string          `json:"channel"`
}

// executeRequest is the shell-channel payload asking the kernel to run code.
type executeRequest struct {
	Code            string         `json:"code"`
	Silent          bool           `json:"silent"`
	StoreHistory    bool           `json:"store_history"`
	UserExpressions map[string]any `json:"user_expressions"`
	AllowStdin      bool           `json:"allow_stdin"`
	StopOnError     bool           `json:"stop_on_error"`
}

// streamContent carries stdout/stderr text.
type streamContent struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// displayDataContent carries rendered rich output keyed by MIME type.
type displayDataContent struct {
	Data     map[string]json.RawMessage `json:"data"`
	Metadata map[string]any             `json:"metadata"`
}

// errorContent reports a kernel-side exception.
type errorContent struct {
	Ename     string   `json:"ename"`
	Evalue    string   `json:"evalue"`
	Traceback []string `json:"traceback"`
}

// statusContent reports kernel execution state transitions.
type statusContent struct {
	ExecutionState string `json:"execution_state"`
}

// newExecuteMessage builds an execute_request for the given code. The
// returned msg_id keys iopub replies back to their request.
func newExecuteMessage(session, code string) (Message, string, error) {
	msgID := uuid.NewString()
	content, err := json.Marshal(executeRequest{
		Code:         code,
		Silent:       false,
		StoreHistory: false,
		StopOnError:  true,
	})
	if err != nil {
		return Message{}, "", err
	}
	return Message{
		Header: Header{
			MsgID:   msgID,
			Session: session,
			MsgType: msgTypeExecuteRequest,
			Version: protocolVersion,
			Date:    time.Now().UTC().Format(time.RFC3339),
		},
		Metadata: map[string]any{},
		Content:  content,
		Channel:  channelShell,
	}, msgID, nil
}

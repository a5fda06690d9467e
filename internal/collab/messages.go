package collab

import (
	"encoding/json"

	"collabcore/internal/ot/delta"
)

// 服务端事件。传输层（ws 包）只负责把它们按 JSON 写出去，
// 事件的构造与路由都发生在房间循环内。

type Outbound interface {
	MessageType() string
}

type Member struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username,omitempty"`
}

type DocumentStateMsg struct {
	Type     string      `json:"type"` // "document-state"
	DocID    string      `json:"docId"`
	Content  delta.Delta `json:"content"`
	Revision uint64      `json:"revision"`
	CanEdit  bool        `json:"canEdit"`
}

type EditMsg struct {
	Type     string      `json:"type"` // "edit"
	DocID    string      `json:"docId"`
	Ops      delta.Delta `json:"ops"`
	Revision uint64      `json:"revision"`
	UserID   uint64      `json:"userId"`
}

type PresenceUpdateMsg struct {
	Type    string   `json:"type"` // "presence-update"
	DocID   string   `json:"docId"`
	Members []Member `json:"members"`
}

type UserJoinedMsg struct {
	Type     string `json:"type"` // "user-joined"
	DocID    string `json:"docId"`
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
}

type UserLeftMsg struct {
	Type     string `json:"type"` // "user-left"
	DocID    string `json:"docId"`
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
}

type CursorMsg struct {
	Type   string          `json:"type"` // "cursor"
	DocID  string          `json:"docId"`
	UserID uint64          `json:"userId"`
	Range  json.RawMessage `json:"range"`
}

type ChatMsg struct {
	Type     string `json:"type"` // "chat"
	DocID    string `json:"docId"`
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type OperationRejectedMsg struct {
	Type    string `json:"type"` // "operation-rejected"
	DocID   string `json:"docId"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type ErrorMsg struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (m DocumentStateMsg) MessageType() string     { return m.Type }
func (m EditMsg) MessageType() string              { return m.Type }
func (m PresenceUpdateMsg) MessageType() string    { return m.Type }
func (m UserJoinedMsg) MessageType() string        { return m.Type }
func (m UserLeftMsg) MessageType() string          { return m.Type }
func (m CursorMsg) MessageType() string            { return m.Type }
func (m ChatMsg) MessageType() string              { return m.Type }
func (m OperationRejectedMsg) MessageType() string { return m.Type }
func (m ErrorMsg) MessageType() string             { return m.Type }

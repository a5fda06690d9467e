package ws

import (
	"encoding/json"

	"collabcore/internal/ot/delta"
)

// ClientMessage 是客户端入站事件的统一包络。
// 出站事件的类型定义在 collab 包（由房间循环构造）。
type ClientMessage struct {
	Type         string          `json:"type"` // join / edit / cursor / save / chat
	DocID        string          `json:"docId"`
	Ops          delta.Delta     `json:"ops,omitempty"`
	BaseRevision uint64          `json:"baseRevision,omitempty"`
	Range        json.RawMessage `json:"range,omitempty"`
	Content      delta.Delta     `json:"content,omitempty"` // save 可携带全量内容
	Message      string          `json:"message,omitempty"` // chat 文本
}

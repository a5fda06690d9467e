package collab

import (
	"time"

	"collabcore/internal/ot/delta"
)

// DocOpEvent 是每次接受编辑后发往 Kafka 的审计事件，按 docId 分区。
type DocOpEvent struct {
	EventType    string      `json:"eventType"` // 固定 "OP_APPLIED"
	DocID        string      `json:"docId"`
	Revision     uint64      `json:"revision"`
	AuthorID     uint64      `json:"authorId"`
	BaseRevision uint64      `json:"baseRevision"`
	Ops          delta.Delta `json:"ops"`
	AppliedAt    time.Time   `json:"appliedAt"`
}

package store

import "time"

type Document struct {
	ID            string `gorm:"primaryKey;size:64"`
	OwnerID       uint64 `gorm:"index"`
	IsPublic      bool
	Collaborators string `gorm:"type:json"`     // []perm.Collaborator 的 JSON
	ContentDelta  string `gorm:"type:longtext"` // 操作日志的 JSON
	ContentText   string `gorm:"type:longtext"` // 纯文本投影
	Revision      uint64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Document) TableName() string { return "documents" }

type DocumentVersion struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	DocumentID   string `gorm:"size:64;uniqueIndex:uniq_doc_rev"`
	Revision     uint64 `gorm:"uniqueIndex:uniq_doc_rev"`
	ContentDelta string `gorm:"type:longtext"`
	ContentText  string `gorm:"type:longtext"`
	EditorID     uint64
	CreatedAt    time.Time
}

func (DocumentVersion) TableName() string { return "document_versions" }

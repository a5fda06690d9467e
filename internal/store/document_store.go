package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"collabcore/internal/collab"
	"collabcore/internal/ot/delta"
)

// MySQLStore 实现 collab.Store：文档内容走 gorm，
// 版本历史追加走 database/sql（见 version_store.go）。
type MySQLStore struct {
	db       *gorm.DB
	versions *VersionStore
}

func NewMySQLStore(db *gorm.DB) (*MySQLStore, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return &MySQLStore{db: db, versions: NewVersionStore(sqlDB)}, nil
}

func (s *MySQLStore) Meta(ctx context.Context, docID string) (collab.DocMeta, error) {
	var doc Document
	err := s.db.WithContext(ctx).
		Select("owner_id", "is_public", "collaborators").
		First(&doc, "id = ?", docID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return collab.DocMeta{}, collab.ErrDocNotFound
	}
	if err != nil {
		return collab.DocMeta{}, fmt.Errorf("load meta: %w", err)
	}

	meta := collab.DocMeta{OwnerID: doc.OwnerID, IsPublic: doc.IsPublic}
	if doc.Collaborators != "" {
		if err := json.Unmarshal([]byte(doc.Collaborators), &meta.Collaborators); err != nil {
			return collab.DocMeta{}, fmt.Errorf("decode collaborators: %w", err)
		}
	}
	return meta, nil
}

func (s *MySQLStore) Create(ctx context.Context, docID string, ownerID uint64) error {
	doc := Document{
		ID:            docID,
		OwnerID:       ownerID,
		Collaborators: "[]",
		ContentDelta:  "[]",
	}
	err := s.db.WithContext(ctx).Create(&doc).Error
	if err != nil && isDuplicateKey(err) {
		// 并发首次 join：别人先建档了，等价于成功
		return nil
	}
	return err
}

func (s *MySQLStore) LoadContent(ctx context.Context, docID string) (collab.ContentSnapshot, error) {
	var doc Document
	err := s.db.WithContext(ctx).
		Select("content_delta", "content_text", "revision").
		First(&doc, "id = ?", docID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return collab.ContentSnapshot{}, nil
	}
	if err != nil {
		return collab.ContentSnapshot{}, fmt.Errorf("load content: %w", err)
	}

	snap := collab.ContentSnapshot{Text: doc.ContentText, Revision: doc.Revision}
	if doc.ContentDelta != "" {
		var d delta.Delta
		if err := json.Unmarshal([]byte(doc.ContentDelta), &d); err != nil {
			return collab.ContentSnapshot{}, fmt.Errorf("decode content: %w", err)
		}
		snap.Content = d
	}
	return snap, nil
}

func (s *MySQLStore) SaveContent(ctx context.Context, docID string, snap collab.ContentSnapshot, editorID uint64) error {
	raw, err := json.Marshal(snap.Content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}

	res := s.db.WithContext(ctx).Model(&Document{}).
		Where("id = ?", docID).
		Updates(map[string]any{
			"content_delta": string(raw),
			"content_text":  snap.Text,
			"revision":      snap.Revision,
		})
	if res.Error != nil {
		return fmt.Errorf("save content: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		doc := Document{
			ID:            docID,
			OwnerID:       editorID,
			Collaborators: "[]",
			ContentDelta:  string(raw),
			ContentText:   snap.Text,
			Revision:      snap.Revision,
		}
		if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil && !isDuplicateKey(err) {
			return fmt.Errorf("save content: %w", err)
		}
	}

	return s.versions.Append(ctx, docID, snap.Revision, string(raw), snap.Text, editorID)
}

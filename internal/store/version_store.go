package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// VersionStore 往版本历史表追加记录。
// (document_id, revision) 唯一，重复追加同一修订等价于成功，
// 这保证了 flush 的幂等（销毁路径和在途 flush 撞车时会发生）。
type VersionStore struct{ db *sql.DB }

func NewVersionStore(db *sql.DB) *VersionStore {
	return &VersionStore{db: db}
}

func (s *VersionStore) Append(ctx context.Context, docID string, rev uint64, contentDelta, contentText string, editorID uint64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_versions (document_id, revision, content_delta, content_text, editor_id, created_at)
		VALUES (?, ?, ?, ?, ?, NOW())`,
		docID,
		rev,
		contentDelta,
		contentText,
		editorID,
	)
	if err != nil && isDuplicateKey(err) {
		return nil
	}
	return err
}

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

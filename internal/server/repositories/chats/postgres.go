package chats

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/pandachat/internal/common"
	"github.com/dmitrijs2005/pandachat/internal/dbx"
	"github.com/dmitrijs2005/pandachat/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, owner string) ([]models.Chat, error) {
	query :=
		`SELECT id, owner_email, title, created, messages FROM chats
		 WHERE owner_email = $1
		 ORDER BY row_id
		 `
	return r.list(ctx, query, owner)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]models.Chat, error) {
	query :=
		`SELECT id, owner_email, title, created, messages FROM chats
		 ORDER BY row_id
		 `
	return r.list(ctx, query)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.Chat, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Chat, 0)
	for rows.Next() {
		var (
			c                 models.Chat
			id                string
			created, messages []byte
		)
		if err := rows.Scan(&id, &c.OwnerEmail, &c.Title, &created, &messages); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		c.ID = models.ChatID(id)
		c.Created = created
		c.Messages = messages
		c.Normalize()
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) TitleTakenByOther(ctx context.Context, owner, title string, exceptID models.ChatID) (bool, error) {
	query :=
		`SELECT EXISTS (
		   SELECT 1 FROM chats
		   WHERE owner_email = $1 AND title = $2 AND id <> $3
		 )`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, owner, title, exceptID.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, chat *models.Chat) error {
	query :=
		`INSERT INTO chats (id, owner_email, title, created, messages)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id, owner_email) DO UPDATE
		 SET title = EXCLUDED.title,
		     created = EXCLUDED.created,
		     messages = EXCLUDED.messages,
		     updated_at = now()
		 `

	chat.Normalize()
	_, err := r.db.ExecContext(ctx, query,
		chat.ID.String(), chat.OwnerEmail, chat.Title, string(chat.Created), string(chat.Messages))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, owner string, id models.ChatID) error {
	query :=
		`DELETE FROM chats
		 WHERE owner_email = $1 AND id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, owner, id.String())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) DeleteByOwner(ctx context.Context, owner string) (int64, error) {
	query :=
		`DELETE FROM chats
		 WHERE owner_email = $1
		 `

	res, err := r.db.ExecContext(ctx, query, owner)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) DeleteAny(ctx context.Context, id models.ChatID, owner string) error {
	query :=
		`DELETE FROM chats
		 WHERE row_id = (
		   SELECT row_id FROM chats
		   WHERE id = $1 AND ($2::text = '' OR owner_email = $2)
		   ORDER BY row_id
		   LIMIT 1
		 )`

	res, err := r.db.ExecContext(ctx, query, id.String(), owner)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) DeleteByRawIDAndTitle(ctx context.Context, rawID, title, owner string) error {
	query :=
		`DELETE FROM chats
		 WHERE row_id = (
		   SELECT row_id FROM chats
		   WHERE id = $1 AND title = $2 AND ($3::text = '' OR owner_email = $3)
		   ORDER BY row_id
		   LIMIT 1
		 )`

	res, err := r.db.ExecContext(ctx, query, rawID, title, owner)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

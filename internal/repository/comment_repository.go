package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CommentRepository manages ticket comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	Update(ctx context.Context, comment *domain.Comment) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	// ListByTicket returns comments oldest first, hiding internal ones unless includeInternal is set.
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error)
}

type commentRepository struct {
	db DBTX
}

// NewCommentRepository builds repository.
func NewCommentRepository(db DBTX) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	attachments, err := marshalAttachments(comment.Attachments)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO comments (id, ticket_id, user_id, content, is_internal, attachments, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$7)`
	_, err = r.db.Exec(ctx, query,
		comment.ID,
		comment.TicketID,
		comment.UserID,
		comment.Content,
		comment.IsInternal,
		attachments,
		comment.CreatedAt,
	)
	if err == nil {
		comment.UpdatedAt = comment.CreatedAt
	}
	return err
}

func (r *commentRepository) Update(ctx context.Context, comment *domain.Comment) error {
	attachments, err := marshalAttachments(comment.Attachments)
	if err != nil {
		return err
	}
	const query = `
        UPDATE comments SET content=$1, is_internal=$2, attachments=$3, updated_at=$4
        WHERE id=$5`
	cmd, err := r.db.Exec(ctx, query,
		comment.Content,
		comment.IsInternal,
		attachments,
		comment.UpdatedAt,
		comment.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM comments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const commentColumns = `cm.id, cm.ticket_id, cm.user_id, cm.content, cm.is_internal, cm.attachments,
       cm.created_at, cm.updated_at, u.id, u.name, u.email, u.role`

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	query := `SELECT ` + commentColumns + `
        FROM comments cm LEFT JOIN users u ON u.id = cm.user_id
        WHERE cm.id=$1`
	return scanComment(r.db.QueryRow(ctx, query, id))
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	query := `SELECT ` + commentColumns + `
        FROM comments cm LEFT JOIN users u ON u.id = cm.user_id
        WHERE cm.ticket_id=$1 AND ($2 OR cm.is_internal = FALSE)
        ORDER BY cm.created_at ASC, cm.id ASC`
	rows, err := r.db.Query(ctx, query, ticketID, includeInternal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *comment)
	}
	return result, rows.Err()
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var (
		comment     domain.Comment
		attachments []byte
		author      relatedUserRow
	)
	if err := row.Scan(
		&comment.ID,
		&comment.TicketID,
		&comment.UserID,
		&comment.Content,
		&comment.IsInternal,
		&attachments,
		&comment.CreatedAt,
		&comment.UpdatedAt,
		&author.ID,
		&author.Name,
		&author.Email,
		&author.Role,
	); err != nil {
		return nil, err
	}
	if err := unmarshalAttachments(attachments, &comment.Attachments); err != nil {
		return nil, err
	}
	comment.Author = author.summary()
	return &comment, nil
}

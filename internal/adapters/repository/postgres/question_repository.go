package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

type questionRepository struct {
	db *sql.DB
}

func NewQuestionRepository(db *sql.DB) ports.QuestionRepository {
	return &questionRepository{
		db: db,
	}
}

func (r *questionRepository) Create(ctx context.Context, question *domain.Question) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryQuestion := `
		INSERT INTO questions (question_text, publish_date)
		VALUES ($1, $2)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, queryQuestion, question.Text, question.PublishDate).Scan(&question.ID)
	if err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}

	if err := insertChoices(ctx, tx, question.ID, question.Choices); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *questionRepository) Update(ctx context.Context, question *domain.Question, removedChoiceIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE questions SET question_text = $1, publish_date = $2
		WHERE id = $3
	`, question.Text, question.PublishDate, question.ID)
	if err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrQuestionNotFound
	}

	for _, id := range removedChoiceIDs {
		_, err := tx.ExecContext(ctx, `DELETE FROM choices WHERE id = $1 AND question_id = $2`, id, question.ID)
		if err != nil {
			return fmt.Errorf("failed to delete choice %d: %w", id, err)
		}
	}

	var added []domain.Choice
	for _, c := range question.Choices {
		if c.ID == 0 {
			added = append(added, c)
			continue
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE choices SET choice_text = $1, votes = $2
			WHERE id = $3 AND question_id = $4
		`, c.Text, c.Votes, c.ID, question.ID)
		if err != nil {
			return fmt.Errorf("failed to update choice %d: %w", c.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.ErrChoiceNotFound
		}
	}

	if err := insertChoices(ctx, tx, question.ID, added); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *questionRepository) Delete(ctx context.Context, id int64) error {
	// choices go with the question through ON DELETE CASCADE
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	if n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (r *questionRepository) GetByID(ctx context.Context, id int64) (*domain.Question, error) {
	queryQuestion := `
		SELECT id, question_text, publish_date
		FROM questions
		WHERE id = $1
	`

	var question domain.Question
	err := r.db.QueryRowContext(ctx, queryQuestion, id).Scan(
		&question.ID, &question.Text, &question.PublishDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	question.PublishDate = question.PublishDate.UTC()

	choices, err := r.fetchChoices(ctx, question.ID)
	if err != nil {
		return nil, err
	}
	question.Choices = choices

	return &question, nil
}

func (r *questionRepository) ListPublished(ctx context.Context, now time.Time, limit int) ([]*domain.Question, error) {
	query := `
		SELECT id, question_text, publish_date
		FROM questions
		WHERE publish_date <= $1
		ORDER BY publish_date DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list published questions: %w", err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func (r *questionRepository) List(ctx context.Context, filter ports.QuestionFilter) ([]*domain.Question, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		conditions = append(conditions, "question_text ILIKE "+arg("%"+escapeLike(filter.Search)+"%"))
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "publish_date >= "+arg(filter.Since))
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, "publish_date < "+arg(filter.Until))
	}

	query := `SELECT id, question_text, publish_date FROM questions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY publish_date DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func (r *questionRepository) fetchChoices(ctx context.Context, questionID int64) ([]domain.Choice, error) {
	queryChoices := `
		SELECT id, question_id, choice_text, votes
		FROM choices
		WHERE question_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, queryChoices, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get choices: %w", err)
	}
	defer rows.Close()

	var choices []domain.Choice
	for rows.Next() {
		var c domain.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan choice: %w", err)
		}
		choices = append(choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating choices: %w", err)
	}
	return choices, nil
}

func insertChoices(ctx context.Context, tx *sql.Tx, questionID int64, choices []domain.Choice) error {
	if len(choices) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO choices (question_id, choice_text, votes)
		VALUES ($1, $2, $3)
		RETURNING id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare choice statement: %w", err)
	}
	defer stmt.Close()

	for i := range choices {
		c := &choices[i]
		if err := stmt.QueryRowContext(ctx, questionID, c.Text, c.Votes).Scan(&c.ID); err != nil {
			return fmt.Errorf("failed to insert choice: %w", err)
		}
		c.QuestionID = questionID
	}
	return nil
}

func scanQuestions(rows *sql.Rows) ([]*domain.Question, error) {
	var questions []*domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.PublishDate); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.PublishDate = q.PublishDate.UTC()
		questions = append(questions, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return questions, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

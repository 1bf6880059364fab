package sqlite

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
	return &questionRepository{db: db}
}

func (r *questionRepository) Create(ctx context.Context, question *domain.Question) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO questions (question_text, publish_date)
		VALUES (?, ?)
	`, question.Text, toMicros(question.PublishDate))
	if err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}
	if question.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read question id: %w", err)
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
		UPDATE questions SET question_text = ?, publish_date = ?
		WHERE id = ?
	`, question.Text, toMicros(question.PublishDate), question.ID)
	if err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrQuestionNotFound
	}

	for _, id := range removedChoiceIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM choices WHERE id = ? AND question_id = ?`, id, question.ID); err != nil {
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
			UPDATE choices SET choice_text = ?, votes = ?
			WHERE id = ? AND question_id = ?
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
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
	var (
		question domain.Question
		micros   int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, question_text, publish_date
		FROM questions
		WHERE id = ?
	`, id).Scan(&question.ID, &question.Text, &micros)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	question.PublishDate = fromMicros(micros)

	choices, err := r.fetchChoices(ctx, question.ID)
	if err != nil {
		return nil, err
	}
	question.Choices = choices

	return &question, nil
}

func (r *questionRepository) ListPublished(ctx context.Context, now time.Time, limit int) ([]*domain.Question, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, question_text, publish_date
		FROM questions
		WHERE publish_date <= ?
		ORDER BY publish_date DESC, id DESC
		LIMIT ?
	`, toMicros(now), limit)
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

	// LIKE is case-insensitive for ASCII in SQLite
	if filter.Search != "" {
		conditions = append(conditions, `question_text LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(filter.Search)+"%")
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "publish_date >= ?")
		args = append(args, toMicros(filter.Since))
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, "publish_date < ?")
		args = append(args, toMicros(filter.Until))
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
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, question_id, choice_text, votes
		FROM choices
		WHERE question_id = ?
		ORDER BY id
	`, questionID)
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
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare choice statement: %w", err)
	}
	defer stmt.Close()

	for i := range choices {
		c := &choices[i]
		res, err := stmt.ExecContext(ctx, questionID, c.Text, c.Votes)
		if err != nil {
			return fmt.Errorf("failed to insert choice: %w", err)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read choice id: %w", err)
		}
		c.QuestionID = questionID
	}
	return nil
}

func scanQuestions(rows *sql.Rows) ([]*domain.Question, error) {
	var questions []*domain.Question
	for rows.Next() {
		var (
			q      domain.Question
			micros int64
		)
		if err := rows.Scan(&q.ID, &q.Text, &micros); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.PublishDate = fromMicros(micros)
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

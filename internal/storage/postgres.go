package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/innotech/hrbot/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *PostgresStorage) SubmitRequest(ctx context.Context, draft RequestDraft, submitter models.Identity) (*models.Request, error) {
	req := &models.Request{
		ID:        uuid.New().String(),
		Type:      draft.Type,
		Message:   draft.Message,
		Dates:     draft.Dates,
		Escalated: draft.Escalated,
		Status:    models.StatusPending,
		Timestamp: time.Now(),
		UserID:    submitter.ID,
		UserName:  submitter.Name,
	}
	if req.Type == models.RequestHarassment {
		req.Escalated = true
	}

	var start, end sql.NullTime
	if req.Dates != nil {
		start = sql.NullTime{Time: req.Dates.Start, Valid: true}
		end = sql.NullTime{Time: req.Dates.End, Valid: true}
	}

	query := `
		INSERT INTO requests (id, type, message, start_date, end_date, escalated, status, created_at, user_id, user_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		req.ID, string(req.Type), req.Message, start, end,
		req.Escalated, string(req.Status), req.Timestamp, req.UserID, req.UserName)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}

	return req, nil
}

func (s *PostgresStorage) RequestByID(ctx context.Context, id string) (*models.Request, error) {
	query := `
		SELECT id, type, message, start_date, end_date, escalated, status, created_at, user_id, user_name
		FROM requests
		WHERE id = $1`

	req, err := scanRequest(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying request: %v", err)
	}
	return req, nil
}

func (s *PostgresStorage) Requests(ctx context.Context) ([]*models.Request, error) {
	query := `
		SELECT id, type, message, start_date, end_date, escalated, status, created_at, user_id, user_name
		FROM requests
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying requests: %v", err)
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning request: %v", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

func (s *PostgresStorage) UpdateRequestStatus(ctx context.Context, id string, status models.RequestStatus, note string) (*models.Request, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	var current models.RequestStatus
	var userID string
	err = tx.QueryRowContext(ctx,
		`SELECT status, user_id FROM requests WHERE id = $1 FOR UPDATE`, id).
		Scan(&current, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying request status: %v", err)
	}

	if err := checkTransition(current, status); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE requests SET status = $1 WHERE id = $2`, string(status), id); err != nil {
		return nil, fmt.Errorf("error updating request status: %v", err)
	}

	if text := notificationText(id, status, note); text != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, request_id, user_id, sender, message, created_at, read)
			VALUES ($1, $2, $3, $4, $5, $6, FALSE)`,
			uuid.New().String(), id, userID, string(models.SenderHR), text, time.Now()); err != nil {
			return nil, fmt.Errorf("error creating notification: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transaction: %v", err)
	}

	return s.RequestByID(ctx, id)
}

func (s *PostgresStorage) Stats(ctx context.Context) (models.RequestStats, error) {
	requests, err := s.Requests(ctx)
	if err != nil {
		return models.RequestStats{}, err
	}
	return ComputeStats(requests), nil
}

func (s *PostgresStorage) SendMessage(ctx context.Context, requestID, userID, text string, from models.MessageSender) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	msg := &models.Message{
		ID:        uuid.New().String(),
		RequestID: requestID,
		UserID:    userID,
		From:      from,
		Message:   text,
		Timestamp: time.Now(),
	}

	var reqID sql.NullString
	if requestID != "" {
		reqID = sql.NullString{String: requestID, Valid: true}
	}

	query := `
		INSERT INTO messages (id, request_id, user_id, sender, message, created_at, read)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID, reqID, msg.UserID, string(msg.From), msg.Message, msg.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("error creating message: %v", err)
	}

	return msg, nil
}

func (s *PostgresStorage) UnreadForUser(ctx context.Context, userID string) ([]*models.Message, error) {
	query := `
		SELECT id, request_id, user_id, sender, message, created_at, read
		FROM messages
		WHERE user_id = $1 AND NOT read
		ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %v", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		var reqID sql.NullString
		if err := rows.Scan(&msg.ID, &reqID, &msg.UserID, &msg.From, &msg.Message, &msg.Timestamp, &msg.Read); err != nil {
			return nil, fmt.Errorf("error scanning message: %v", err)
		}
		msg.RequestID = reqID.String
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (s *PostgresStorage) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE messages SET read = TRUE WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error marking messages read: %v", err)
	}
	return nil
}

func (s *PostgresStorage) Scores(ctx context.Context, userID string) (models.ScoreMap, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT skill_id, score FROM scores WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying scores: %v", err)
	}
	defer rows.Close()

	scores := models.ScoreMap{}
	for rows.Next() {
		var skillID string
		var score int
		if err := rows.Scan(&skillID, &score); err != nil {
			return nil, fmt.Errorf("error scanning score: %v", err)
		}
		scores[skillID] = score
	}

	return scores, rows.Err()
}

func (s *PostgresStorage) SaveScores(ctx context.Context, userID string, scores models.ScoreMap) error {
	query := `
		INSERT INTO scores (user_id, skill_id, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, skill_id) DO UPDATE SET score = EXCLUDED.score`

	for skillID, score := range scores {
		if _, err := s.db.ExecContext(ctx, query, userID, skillID, score); err != nil {
			return fmt.Errorf("error saving score: %v", err)
		}
	}
	return nil
}

func (s *PostgresStorage) Progress(ctx context.Context, userID string) (map[string]models.CourseProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT course_id, level, xp FROM course_progress WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying course progress: %v", err)
	}
	defer rows.Close()

	progress := make(map[string]models.CourseProgress)
	for rows.Next() {
		var courseID string
		var p models.CourseProgress
		if err := rows.Scan(&courseID, &p.Level, &p.XP); err != nil {
			return nil, fmt.Errorf("error scanning course progress: %v", err)
		}
		progress[courseID] = p
	}

	return progress, rows.Err()
}

func (s *PostgresStorage) SaveProgress(ctx context.Context, userID string, progress map[string]models.CourseProgress) error {
	query := `
		INSERT INTO course_progress (user_id, course_id, level, xp)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, course_id) DO UPDATE SET level = EXCLUDED.level, xp = EXCLUDED.xp`

	for courseID, p := range progress {
		if _, err := s.db.ExecContext(ctx, query, userID, courseID, p.Level, p.XP); err != nil {
			return fmt.Errorf("error saving course progress: %v", err)
		}
	}
	return nil
}

func (s *PostgresStorage) AppendHistory(ctx context.Context, userID string, entry models.ChatEntry) error {
	query := `
		INSERT INTO chat_history (entry_id, user_id, sender, text, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, userID, entry.From, entry.Text, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("error appending chat history: %v", err)
	}
	return nil
}

func (s *PostgresStorage) History(ctx context.Context, userID string) ([]models.ChatEntry, error) {
	query := `
		SELECT entry_id, sender, text, created_at
		FROM chat_history
		WHERE user_id = $1
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying chat history: %v", err)
	}
	defer rows.Close()

	var entries []models.ChatEntry
	for rows.Next() {
		var e models.ChatEntry
		if err := rows.Scan(&e.ID, &e.From, &e.Text, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning chat history: %v", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *PostgresStorage) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`TRUNCATE requests, messages, scores, course_progress, chat_history`)
	if err != nil {
		return fmt.Errorf("error clearing store: %v", err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	req := &models.Request{}
	var start, end sql.NullTime
	err := row.Scan(&req.ID, &req.Type, &req.Message, &start, &end,
		&req.Escalated, &req.Status, &req.Timestamp, &req.UserID, &req.UserName)
	if err != nil {
		return nil, err
	}
	if start.Valid {
		req.Dates = &models.DateRange{Start: start.Time, End: end.Time}
	}
	return req, nil
}

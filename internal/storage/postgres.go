package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/xaenox/support-bot/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql admins.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	AdminDBName string
	SSLMode     string
	UseInMemory bool
}

// PostgresStorage keeps the per-bot data (tickets, prepared entries,
// mailings) in one database and reads the admin roster from a second,
// shared database, so several bot deployments can share one roster.
type PostgresStorage struct {
	db      *sql.DB
	adminDB *sql.DB
	logger  *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := open(config, config.DBName)
	if err != nil {
		return nil, err
	}

	adminDB, err := open(config, config.AdminDBName)
	if err != nil {
		db.Close()
		return nil, err
	}

	storage := &PostgresStorage{db: db, adminDB: adminDB, logger: logger}

	if err := storage.initializeSchema(); err != nil {
		storage.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func open(config DatabaseConfig, dbName string) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, dbName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database %s: %w", dbName, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database %s: %w", dbName, err)
	}

	return db, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}
	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	adminSQL, err := migrations.ReadFile("admins.sql")
	if err != nil {
		return fmt.Errorf("error reading admins migrations file: %w", err)
	}
	if _, err := s.adminDB.Exec(string(adminSQL)); err != nil {
		return fmt.Errorf("error executing admin migrations: %w", err)
	}

	return nil
}

func (s *PostgresStorage) SeedPreparedEntries(ctx context.Context, entries []models.PreparedEntry) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prepared_entries`).Scan(&count); err != nil {
		return fmt.Errorf("error counting prepared entries: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, e := range entries {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO prepared_entries (question, answer, category, match_key)
			VALUES ($1, $2, $3, $4)`,
			e.Text, e.Answer, e.Category, e.MatchKey)
		if err != nil {
			return fmt.Errorf("error seeding prepared entry: %w", err)
		}
	}
	s.logger.Info("Seeded prepared entries", zap.Int("count", len(entries)))
	return nil
}

func (s *PostgresStorage) PreparedEntries(ctx context.Context) ([]models.PreparedEntry, error) {
	return s.queryEntries(ctx, `
		SELECT question, answer, category, match_key
		FROM prepared_entries
		ORDER BY id`)
}

func (s *PostgresStorage) PreparedEntriesByCategory(ctx context.Context, category string) ([]models.PreparedEntry, error) {
	return s.queryEntries(ctx, `
		SELECT question, answer, category, match_key
		FROM prepared_entries
		WHERE LOWER(category) = LOWER($1)
		ORDER BY id`, category)
}

func (s *PostgresStorage) queryEntries(ctx context.Context, query string, args ...any) ([]models.PreparedEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying prepared entries: %w", err)
	}
	defer rows.Close()

	var entries []models.PreparedEntry
	for rows.Next() {
		var e models.PreparedEntry
		if err := rows.Scan(&e.Text, &e.Answer, &e.Category, &e.MatchKey); err != nil {
			return nil, fmt.Errorf("error scanning prepared entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStorage) Categories(ctx context.Context) ([]string, error) {
	// Reverse insertion order, matching the menu the users see.
	rows, err := s.db.QueryContext(ctx, `
		SELECT category
		FROM prepared_entries
		GROUP BY category
		ORDER BY MIN(id) DESC`)
	if err != nil {
		return nil, fmt.Errorf("error querying categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("error scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateTicket allocates the next visible id through the single-row
// ticket_seq table. The UPDATE ... RETURNING takes a row lock, so concurrent
// creations serialize on the allocator and can never observe the same value.
func (s *PostgresStorage) CreateTicket(ctx context.Context, t *models.Ticket) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		UPDATE ticket_seq SET last_value = last_value + 1
		WHERE id = 1
		RETURNING last_value`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error allocating ticket id: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tickets (id, user_id, username, first_name, email, category, question, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, t.UserID, t.Username, t.FirstName, t.Email, t.Category, t.Question, t.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("error creating ticket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing ticket: %w", err)
	}

	t.ID = id
	return id, nil
}

const ticketColumns = `id, user_id, username, first_name, email, category, question, created_at, closed, answer, admin_id, admin_name, liked`

func (s *PostgresStorage) TicketByID(ctx context.Context, id int64) (*models.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying ticket: %w", err)
	}
	return t, nil
}

func (s *PostgresStorage) OpenTickets(ctx context.Context) ([]models.Ticket, error) {
	return s.queryTickets(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE closed = FALSE ORDER BY id`)
}

func (s *PostgresStorage) AllTickets(ctx context.Context) ([]models.Ticket, error) {
	return s.queryTickets(ctx, `SELECT `+ticketColumns+` FROM tickets ORDER BY id`)
}

func (s *PostgresStorage) queryTickets(ctx context.Context, query string, args ...any) ([]models.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*models.Ticket, error) {
	var (
		t         models.Ticket
		answer    sql.NullString
		adminID   sql.NullInt64
		adminName sql.NullString
		liked     sql.NullBool
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Username, &t.FirstName, &t.Email, &t.Category,
		&t.Question, &t.CreatedAt, &t.Closed, &answer, &adminID, &adminName, &liked)
	if err != nil {
		return nil, err
	}

	t.Answer = answer.String
	t.AdminID = adminID.Int64
	t.AdminName = adminName.String
	switch {
	case !liked.Valid:
		t.Rating = models.RatingNone
	case liked.Bool:
		t.Rating = models.RatingLiked
	default:
		t.Rating = models.RatingDisliked
	}
	return &t, nil
}

// CloseTicket flips closed to true only if it is currently false, so two
// admins replying to the same ticket cannot both win.
func (s *PostgresStorage) CloseTicket(ctx context.Context, id int64, answer string, adminID int64, adminName string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tickets
		SET closed = TRUE, answer = $2, admin_id = $3, admin_name = $4
		WHERE id = $1 AND closed = FALSE`,
		id, answer, adminID, adminName)
	if err != nil {
		return fmt.Errorf("error closing ticket: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var closed bool
	err = s.db.QueryRowContext(ctx, `SELECT closed FROM tickets WHERE id = $1`, id).Scan(&closed)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("error checking ticket state: %w", err)
	}
	return ErrAlreadyClosed
}

func (s *PostgresStorage) SetRating(ctx context.Context, id int64, liked bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tickets SET liked = $2 WHERE id = $1`, id, liked)
	if err != nil {
		return fmt.Errorf("error setting rating: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) UserEmail(ctx context.Context, userID int64) (string, error) {
	var email string
	err := s.db.QueryRowContext(ctx, `
		SELECT email FROM tickets
		WHERE user_id = $1 AND email <> ''
		ORDER BY id DESC
		LIMIT 1`, userID).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error querying user email: %w", err)
	}
	return email, nil
}

func (s *PostgresStorage) AllUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM tickets
		GROUP BY user_id
		ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("error querying user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStorage) SaveMailing(ctx context.Context, m *models.Mailing) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mailings (admin_id, admin_name, text, sent_at, recipient_count, image_file_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.AdminID, m.AdminName, m.Text, m.SentAt, m.RecipientCount, m.ImageFileID)
	if err != nil {
		return fmt.Errorf("error saving mailing: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Mailings(ctx context.Context) ([]models.Mailing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT admin_id, admin_name, text, sent_at, recipient_count, image_file_id
		FROM mailings
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error querying mailings: %w", err)
	}
	defer rows.Close()

	var mailings []models.Mailing
	for rows.Next() {
		var m models.Mailing
		if err := rows.Scan(&m.AdminID, &m.AdminName, &m.Text, &m.SentAt, &m.RecipientCount, &m.ImageFileID); err != nil {
			return nil, fmt.Errorf("error scanning mailing: %w", err)
		}
		mailings = append(mailings, m)
	}
	return mailings, rows.Err()
}

func (s *PostgresStorage) ActiveAdminIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.adminDB.QueryContext(ctx, `SELECT id FROM admins WHERE active = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("error querying admins: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning admin id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStorage) Close() error {
	if err := s.db.Close(); err != nil {
		s.adminDB.Close()
		return err
	}
	return s.adminDB.Close()
}

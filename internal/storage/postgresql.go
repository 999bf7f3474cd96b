// Package storage реализует хранилище учётных записей и профилей портала на PostgreSQL.
// Предоставляет регистрацию в одной транзакции, поиск учётной записи по email
// или username, чтение профиля и выборку профилей с истекающим пробным периодом.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/ems-portal/internal/models"
)

const uniqueViolation = "23505"

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// CheckDatabaseReady проверяет, что миграции применены.
func CheckDatabaseReady(ctx context.Context, storage *Storage) error {
	const op = "storage.CheckDatabaseReady"
	var exists bool
	err := storage.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'user_profiles'
    )`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: required table user_profiles missing", op)
	}
	return nil
}

// ===== ACCOUNT METHODS =====

// CreateAccount сохраняет принципала и его профиль в одной транзакции и возвращает id.
// Занятые email или username возвращают models.ErrAccountExists.
func (s *Storage) CreateAccount(ctx context.Context, account models.Account, profile models.Profile) (string, error) {
	const op = "storage.CreateAccount"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO principals (email, username, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		account.Email, account.Username, account.PasswordHash).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, mapConstraint(err))
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_profiles (id, username, first_name, last_name, primary_certification,
		     renewal_date, subscription_type, trial_end_date, role, agency_name)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, profile.Username, profile.FirstName, profile.LastName, string(profile.PrimaryCertification),
		nullTime(profile.RenewalDate), string(profile.SubscriptionType), nullTime(profile.TrialEndDate),
		string(profile.Role), nullString(profile.AgencyName))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, mapConstraint(err))
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetAccountByEmail возвращает учётную запись по email.
func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.GetAccountByEmail"
	return s.getAccount(ctx, op, "email", email)
}

// GetAccountByUsername возвращает учётную запись по username.
func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	const op = "storage.GetAccountByUsername"
	return s.getAccount(ctx, op, "username", username)
}

func (s *Storage) getAccount(ctx context.Context, op, column, value string) (*models.Account, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, email, username, password_hash, created_at
			  FROM principals
			  WHERE ` + column + ` = $1`
	a := &models.Account{}
	err := s.DB.QueryRowContext(ctx, query, value).
		Scan(&a.PrincipalID, &a.Email, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// ===== PROFILE METHODS =====

const profileColumns = `p.id, p.username, p.first_name, p.last_name, p.primary_certification,
	p.renewal_date, p.subscription_type, p.trial_end_date, p.role, p.agency_name`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner, extra ...any) (*models.Profile, error) {
	var (
		p                     models.Profile
		cert, subType, role   string
		renewalDate, trialEnd sql.NullTime
		agency                sql.NullString
	)
	dest := []any{&p.ID, &p.Username, &p.FirstName, &p.LastName, &cert,
		&renewalDate, &subType, &trialEnd, &role, &agency}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	p.PrimaryCertification = models.Certification(cert)
	p.SubscriptionType = models.SubscriptionType(subType)
	p.Role = models.Role(role)
	p.AgencyName = agency.String
	if renewalDate.Valid {
		p.RenewalDate = &renewalDate.Time
	}
	if trialEnd.Valid {
		p.TrialEndDate = &trialEnd.Time
	}
	return &p, nil
}

// GetProfile возвращает профиль принципала. Если профиля нет, возвращает models.ErrNotFound.
func (s *Storage) GetProfile(ctx context.Context, principalID string) (*models.Profile, error) {
	const op = "storage.GetProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + profileColumns + `
			  FROM user_profiles p
			  WHERE p.id = $1`
	p, err := scanProfile(s.DB.QueryRowContext(ctx, query, principalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListTrialProfiles возвращает профили на пробном периоде, который заканчивается не позже before,
// вместе с email принципала.
func (s *Storage) ListTrialProfiles(ctx context.Context, before time.Time) ([]models.ProfileContact, error) {
	const op = "storage.ListTrialProfiles"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + profileColumns + `, u.email
			  FROM user_profiles p
			  JOIN principals u ON u.id = p.id
			  WHERE p.subscription_type = 'trial'
			    AND p.trial_end_date IS NOT NULL
			    AND p.trial_end_date <= $1
			  ORDER BY p.trial_end_date`
	rows, err := s.DB.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var res []models.ProfileContact
	for rows.Next() {
		var email string
		p, err := scanProfile(rows, &email)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, models.ProfileContact{Profile: *p, Email: email})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// MarkTrialNotified фиксирует отправку уведомления с данной срочностью.
// Возвращает false, если такое уведомление уже отправлялось.
func (s *Storage) MarkTrialNotified(ctx context.Context, profileID, urgency string) (bool, error) {
	const op = "storage.MarkTrialNotified"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO trial_notifications (profile_id, urgency)
		 VALUES ($1, $2)
		 ON CONFLICT (profile_id, urgency) DO NOTHING`,
		profileID, urgency)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// UnmarkTrialNotified удаляет отметку, если публикация уведомления не удалась.
func (s *Storage) UnmarkTrialNotified(ctx context.Context, profileID, urgency string) error {
	const op = "storage.UnmarkTrialNotified"
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM trial_notifications WHERE profile_id = $1 AND urgency = $2`,
		profileID, urgency)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return models.ErrAccountExists
	}
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

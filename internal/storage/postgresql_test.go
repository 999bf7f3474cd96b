package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/ems-portal/internal/models"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Storage{DB: db}, mock
}

var profileRowColumns = []string{"id", "username", "first_name", "last_name", "primary_certification",
	"renewal_date", "subscription_type", "trial_end_date", "role", "agency_name"}

func TestCreateAccount_CommitsBothRows(t *testing.T) {
	s, mock := newMockStorage(t)
	trialEnd := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO principals").
		WithArgs("jane@example.com", "jane", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p-1"))
	mock.ExpectExec("INSERT INTO user_profiles").
		WithArgs("p-1", "jane", "Jane", "Doe", "EMTP", sqlmock.AnyArg(), "trial", sqlmock.AnyArg(), "student", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := s.CreateAccount(context.Background(),
		models.Account{Email: "jane@example.com", Username: "jane", PasswordHash: "hash"},
		models.Profile{
			Username:             "jane",
			FirstName:            "Jane",
			LastName:             "Doe",
			PrimaryCertification: models.CertificationEMTP,
			SubscriptionType:     models.SubscriptionTrial,
			TrialEndDate:         &trialEnd,
			Role:                 models.RoleStudent,
		})
	require.NoError(t, err)
	assert.Equal(t, "p-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccount_DuplicateRollsBack(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO principals").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "principals_email_key"})
	mock.ExpectRollback()

	_, err := s.CreateAccount(context.Background(), models.Account{Email: "a@b.c"}, models.Profile{})
	assert.ErrorIs(t, err, models.ErrAccountExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccount_ProfileFailureRollsBack(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO principals").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p-1"))
	mock.ExpectExec("INSERT INTO user_profiles").
		WillReturnError(errors.New("check constraint violated"))
	mock.ExpectRollback()

	_, err := s.CreateAccount(context.Background(), models.Account{}, models.Profile{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrAccountExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccount(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	accountRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "created_at"}).
			AddRow("p-1", "jane@example.com", "jane", "hash", created)
	}

	t.Run("by email", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery("FROM principals\\s+WHERE email = \\$1").
			WithArgs("jane@example.com").
			WillReturnRows(accountRows())

		a, err := s.GetAccountByEmail(context.Background(), "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, &models.Account{
			PrincipalID: "p-1", Email: "jane@example.com", Username: "jane", PasswordHash: "hash", CreatedAt: created,
		}, a)
	})

	t.Run("by username", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery("FROM principals\\s+WHERE username = \\$1").
			WithArgs("jane").
			WillReturnRows(accountRows())

		a, err := s.GetAccountByUsername(context.Background(), "jane")
		require.NoError(t, err)
		assert.Equal(t, "p-1", a.PrincipalID)
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery("FROM principals").WillReturnError(sql.ErrNoRows)

		_, err := s.GetAccountByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestGetProfile(t *testing.T) {
	trialEnd := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery("FROM user_profiles p").
			WithArgs("p-1").
			WillReturnRows(sqlmock.NewRows(profileRowColumns).
				AddRow("p-1", "jane", "Jane", "Doe", "AEMT", nil, "trial", trialEnd, "student", nil))

		p, err := s.GetProfile(context.Background(), "p-1")
		require.NoError(t, err)
		assert.Equal(t, models.CertificationAEMT, p.PrimaryCertification)
		assert.Equal(t, models.SubscriptionTrial, p.SubscriptionType)
		assert.Equal(t, models.RoleStudent, p.Role)
		require.NotNil(t, p.TrialEndDate)
		assert.True(t, trialEnd.Equal(*p.TrialEndDate))
		assert.Nil(t, p.RenewalDate)
		assert.Empty(t, p.AgencyName)
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery("FROM user_profiles p").WillReturnError(sql.ErrNoRows)

		_, err := s.GetProfile(context.Background(), "p-2")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("db failure is not not-found", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery("FROM user_profiles p").WillReturnError(sql.ErrConnDone)

		_, err := s.GetProfile(context.Background(), "p-3")
		require.Error(t, err)
		assert.NotErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		s, _ := newMockStorage(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.GetProfile(ctx, "p-1")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestListTrialProfiles(t *testing.T) {
	s, mock := newMockStorage(t)
	before := time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC)
	end := before.Add(-24 * time.Hour)

	mock.ExpectQuery("JOIN principals u").
		WithArgs(before).
		WillReturnRows(sqlmock.NewRows(append(profileRowColumns, "email")).
			AddRow("p-1", "jane", "Jane", "Doe", "EMTB", nil, "trial", end, "student", "County EMS", "jane@example.com").
			AddRow("p-2", "joe", "Joe", "Roe", "EMTP", nil, "trial", end, "student", nil, "joe@example.com"))

	res, err := s.ListTrialProfiles(context.Background(), before)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "jane@example.com", res[0].Email)
	assert.Equal(t, "County EMS", res[0].Profile.AgencyName)
	assert.Equal(t, "p-2", res[1].Profile.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkTrialNotified(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec("INSERT INTO trial_notifications").
		WithArgs("p-1", "expired").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO trial_notifications").
		WithArgs("p-1", "expired").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM trial_notifications").
		WithArgs("p-1", "expired").
		WillReturnResult(sqlmock.NewResult(0, 1))

	first, err := s.MarkTrialNotified(context.Background(), "p-1", "expired")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := s.MarkTrialNotified(context.Background(), "p-1", "expired")
	require.NoError(t, err)
	assert.False(t, second)

	require.NoError(t, s.UnmarkTrialNotified(context.Background(), "p-1", "expired"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

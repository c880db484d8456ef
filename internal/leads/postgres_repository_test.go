package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leadRowColumns = []string{
	"id", "source", "session_id", "name", "phone", "service", "service_other",
	"area_sqm", "rooms", "bathrooms", "extras", "extras_other", "urgency", "desired_at",
	"estimate_total", "currency", "comment", "created_at",
}

func TestPostgresRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newPostgresRepositoryWithQuerier(mock)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), SourceQuiz, "sess-1", "Анна", "+79991234567", "apartment", "",
			60, 2, 1, []string{"windows"}, "", "today", pgxmock.AnyArg(), 7300, "RUB", "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	lead, err := repo.Create(context.Background(), &CreateLeadRequest{
		Source: SourceQuiz, SessionID: "sess-1", Name: "Анна", Phone: "+79991234567",
		Service: "apartment", AreaSqm: 60, Rooms: 2, Bathrooms: 1, Extras: []string{"windows"},
		Urgency: "today", EstimateTotal: 7300, Currency: "RUB",
	})
	require.NoError(t, err)
	assert.Equal(t, created, lead.CreatedAt)
	_, err = uuid.Parse(lead.ID)
	assert.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newPostgresRepositoryWithQuerier(mock)

	mock.ExpectQuery("INSERT INTO leads").WillReturnError(errors.New("connection reset"))
	_, err = repo.Create(context.Background(), &CreateLeadRequest{Source: SourceCallback, Name: "Олег", Phone: "+79990000000"})
	assert.ErrorContains(t, err, "leads: insert failed")

	_, err = repo.Create(context.Background(), &CreateLeadRequest{Source: SourceCallback})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestPostgresRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newPostgresRepositoryWithQuerier(mock)

	id := uuid.NewString()
	desired := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, source").WithArgs(id).WillReturnRows(
		pgxmock.NewRows(leadRowColumns).AddRow(
			id, SourceQuiz, "sess-1", "Анна", "+79991234567", "house", "",
			120, 4, 2, []string{"oven"}, "", "this_week", &desired,
			14400, "RUB", "", created,
		))

	lead, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "house", lead.Service)
	assert.Equal(t, []string{"oven"}, lead.Extras)
	require.NotNil(t, lead.DesiredAt)
	assert.True(t, desired.Equal(*lead.DesiredAt))

	missing := uuid.NewString()
	mock.ExpectQuery("SELECT id, source").WithArgs(missing).WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByID(context.Background(), missing)
	assert.ErrorIs(t, err, ErrLeadNotFound)

	_, err = repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrLeadNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newPostgresRepositoryWithQuerier(mock)

	desired := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(leadRowColumns).
		AddRow(uuid.NewString(), SourceCallback, "", "Олег", "+79990000000", "", "",
			0, 0, 0, []string{}, "", "", &desired, 0, "", "после обеда", created).
		AddRow(uuid.NewString(), SourceCallback, "", "Ира", "+79990000001", "", "",
			0, 0, 0, []string{}, "", "", &desired, 0, "", "", created.Add(-time.Hour))
	mock.ExpectQuery("FROM leads").WithArgs(SourceCallback, 50, 0).WillReturnRows(rows)

	leads, err := repo.List(context.Background(), ListLeadsFilter{Source: SourceCallback})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "после обеда", leads[0].Comment)

	mock.ExpectQuery("FROM leads").WithArgs("", 10, 20).WillReturnError(errors.New("timeout"))
	_, err = repo.List(context.Background(), ListLeadsFilter{Limit: 10, Offset: 20})
	assert.ErrorContains(t, err, "leads: list failed")
	require.NoError(t, mock.ExpectationsWereMet())
}

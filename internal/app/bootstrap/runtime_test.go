package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/cleaning-quiz-platform/internal/config"
	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

func TestBuildRedisClient_Disabled(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), nil, nil, true))
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: " "}, nil, true))
}

func TestBuildRedisClient_VerifiesPing(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	require.NotNil(t, client)
	defer client.Close()

	require.NoError(t, RedisCheck(client)(context.Background()))
}

func TestBuildRedisClient_UnreachableReturnsNil(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logging.New("error"), true)
	assert.Nil(t, client)
}

func TestRedisCheck_Failure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	assert.Error(t, RedisCheck(client)(context.Background()))
}

func TestConnectPostgresPool_EmptyURLReturnsNil(t *testing.T) {
	assert.Nil(t, ConnectPostgresPool(context.Background(), "", logging.New("error")))
}

func TestConnectPostgresPool_InvalidURLReturnsNil(t *testing.T) {
	assert.Nil(t, ConnectPostgresPool(context.Background(), "postgres://%zz", logging.New("error")))
}

func TestOpenProbeDB_RequiresURL(t *testing.T) {
	_, err := OpenProbeDB("")
	assert.Error(t, err)
}

func TestSQLCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))

	require.NoError(t, SQLCheck(db)(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCheck_PingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = SQLCheck(db)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres ping")
}

func TestSQLCheck_QueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("read-only"))

	err = SQLCheck(db)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres probe")
}

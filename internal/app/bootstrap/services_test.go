package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/cleaning-quiz-platform/internal/config"
	"github.com/wolfman30/cleaning-quiz-platform/internal/events"
	"github.com/wolfman30/cleaning-quiz-platform/internal/leads"
	"github.com/wolfman30/cleaning-quiz-platform/internal/notify"
	"github.com/wolfman30/cleaning-quiz-platform/internal/quiz"
	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		QuizStateTTL:      time.Hour,
		SubmitMaxPerPhone: 2,
		SubmitWindow:      time.Hour,
	}
}

func TestBuildQuizStorage(t *testing.T) {
	logger := logging.New("error")

	_, ok := BuildQuizStorage(nil, testConfig(), logger).(*quiz.MemoryStorage)
	assert.True(t, ok)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	storage := BuildQuizStorage(client, testConfig(), logger)
	_, ok = storage.(*quiz.RedisStorage)
	require.True(t, ok)

	ctx := context.Background()
	require.NoError(t, storage.Set(ctx, "k", []byte("v")))
	assert.Equal(t, time.Hour, mr.TTL("k"))
}

func TestBuildSubmissionLimiter(t *testing.T) {
	logger := logging.New("error")
	assert.Nil(t, BuildSubmissionLimiter(nil, testConfig(), logger))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := BuildSubmissionLimiter(client, testConfig(), logger)
	require.NotNil(t, limiter)

	ctx := context.Background()
	assert.True(t, limiter.Allow(ctx, "+79161234567"))
	assert.True(t, limiter.Allow(ctx, "+79161234567"))
	assert.False(t, limiter.Allow(ctx, "+79161234567"))
}

func TestBuildLeadRepository_MemoryFallback(t *testing.T) {
	_, ok := BuildLeadRepository(nil, logging.New("error")).(*leads.InMemoryRepository)
	assert.True(t, ok)
}

func TestBuildEmailSender(t *testing.T) {
	logger := logging.New("error")

	cfg := testConfig()
	_, ok := BuildEmailSender(cfg, nil, logger).(*notify.StubEmailSender)
	assert.True(t, ok, "no provider configured")

	cfg.SESFromEmail = "quiz@example.com"
	awsCfg := aws.Config{Region: "eu-central-1"}
	_, ok = BuildEmailSender(cfg, &awsCfg, logger).(*notify.SESSender)
	assert.True(t, ok, "SES when a sender address is set")

	cfg.SendGridAPIKey = "SG.test"
	cfg.SendGridFromEmail = "quiz@example.com"
	_, ok = BuildEmailSender(cfg, &awsCfg, logger).(*notify.SendGridSender)
	assert.True(t, ok, "SendGrid wins over SES")
}

func TestBuildLeadNotifier(t *testing.T) {
	logger := logging.New("error")
	sender := notify.NewStubEmailSender(logger)

	cfg := testConfig()
	assert.Nil(t, BuildLeadNotifier(sender, cfg, logger))

	cfg.NotifyEmails = []string{"office@example.com"}
	assert.NotNil(t, BuildLeadNotifier(sender, cfg, logger))
}

func TestBuildOutboxDeliveryHandler(t *testing.T) {
	logger := logging.New("error")
	cfg := testConfig()

	_, ok := BuildOutboxDeliveryHandler(cfg, nil, logger).(events.LogPublisher)
	assert.True(t, ok)

	cfg.LeadsQueueURL = "http://localhost:4566/000000000000/leads"
	awsCfg := aws.Config{Region: "eu-central-1"}
	_, ok = BuildOutboxDeliveryHandler(cfg, &awsCfg, logger).(*events.SQSPublisher)
	assert.True(t, ok)
}

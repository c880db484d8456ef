package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/cleaning-quiz-platform/internal/config"
	"github.com/wolfman30/cleaning-quiz-platform/internal/events"
	"github.com/wolfman30/cleaning-quiz-platform/internal/leads"
	"github.com/wolfman30/cleaning-quiz-platform/internal/notify"
	"github.com/wolfman30/cleaning-quiz-platform/internal/quiz"
	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

// BuildQuizStorage returns Redis storage when a client is available and
// process memory otherwise.
func BuildQuizStorage(client *redis.Client, cfg *appconfig.Config, logger *logging.Logger) quiz.Storage {
	if client == nil {
		if logger != nil {
			logger.Warn("quiz state kept in memory; sessions will not survive restarts")
		}
		return quiz.NewMemoryStorage()
	}
	return quiz.NewRedisStorage(client, cfg.QuizStateTTL)
}

// BuildSubmissionLimiter returns the per-phone limiter, or a nil interface
// when Redis is unavailable.
func BuildSubmissionLimiter(client *redis.Client, cfg *appconfig.Config, logger *logging.Logger) quiz.Limiter {
	limiter := quiz.NewSubmissionLimiter(client, cfg.SubmitMaxPerPhone, cfg.SubmitWindow, logger)
	if limiter == nil {
		return nil
	}
	return limiter
}

// BuildLeadRepository prefers Postgres and falls back to memory.
func BuildLeadRepository(pool *pgxpool.Pool, logger *logging.Logger) leads.Repository {
	if pool == nil {
		if logger != nil {
			logger.Warn("leads stored in memory; set DATABASE_URL to persist them")
		}
		return leads.NewInMemoryRepository()
	}
	return leads.NewPostgresRepository(pool)
}

// BuildEmailSender picks SendGrid, then SES, then the logging stub.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		return sender
	}
	if awsCfg != nil && strings.TrimSpace(cfg.SESFromEmail) != "" {
		if sender := notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); sender != nil {
			return sender
		}
	}
	return notify.NewStubEmailSender(logger)
}

// BuildLeadNotifier returns a notifier or a nil interface when no inbox is configured.
func BuildLeadNotifier(sender notify.EmailSender, cfg *appconfig.Config, logger *logging.Logger) leads.Notifier {
	n := notify.NewLeadNotifier(sender, cfg.NotifyEmails, logger)
	if n == nil {
		return nil
	}
	return n
}

// BuildOutboxDeliveryHandler publishes to SQS when a queue is configured and
// logs otherwise.
func BuildOutboxDeliveryHandler(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) events.DeliveryHandler {
	if awsCfg != nil && strings.TrimSpace(cfg.LeadsQueueURL) != "" {
		return events.NewSQSPublisher(sqs.NewFromConfig(*awsCfg), cfg.LeadsQueueURL)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return events.LogPublisher{Logf: logger.Info}
}

package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/doctorhome/internal/api/router"
	"github.com/wolfman30/doctorhome/internal/appointments"
	"github.com/wolfman30/doctorhome/internal/clock"
	appconfig "github.com/wolfman30/doctorhome/internal/config"
	"github.com/wolfman30/doctorhome/internal/directory"
	"github.com/wolfman30/doctorhome/internal/events"
	"github.com/wolfman30/doctorhome/pkg/logging"
)

// DirectoryBackend is a directory that the API can read and seed.
type DirectoryBackend interface {
	directory.Store
	directory.Putter
}

// BuildBookingConfig maps environment config onto booking defaults.
func BuildBookingConfig(cfg *appconfig.Config) appointments.BookingConfig {
	bc := appointments.DefaultBookingConfig()
	if cfg == nil {
		return bc
	}
	if cfg.DefaultVisitFee >= 0 {
		bc.DefaultFee = cfg.DefaultVisitFee
	}
	if cfg.DefaultDurationMins > 0 {
		bc.DefaultDurationMinutes = cfg.DefaultDurationMins
	}
	bc.Location = cfg.BookingLocation()
	bc.DefaultVisitLocation = appointments.GeoPoint{Latitude: cfg.DefaultVisitLatitude, Longitude: cfg.DefaultVisitLongitude}
	bc.DefaultVisitAddress = strings.TrimSpace(cfg.DefaultVisitAddress)
	return bc
}

// BuildAppointmentStore selects the store named by STORE_BACKEND.
func BuildAppointmentStore(cfg *appconfig.Config, pool *pgxpool.Pool, awsCfg *aws.Config, c clock.Clock) (appointments.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	switch cfg.StoreBackend {
	case "", appconfig.StoreBackendMemory:
		return appointments.NewInMemoryStore(c), nil
	case appconfig.StoreBackendPostgres:
		if pool == nil {
			return nil, fmt.Errorf("bootstrap: STORE_BACKEND=postgres requires DATABASE_URL")
		}
		return appointments.NewPostgresStore(pool, c), nil
	case appconfig.StoreBackendDynamoDB:
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: STORE_BACKEND=dynamodb requires AWS config")
		}
		return appointments.NewDynamoStore(dynamodb.NewFromConfig(*awsCfg), cfg.AppointmentsTable, c), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

// BuildDirectory returns the Redis directory when a client is available and
// the in-memory one otherwise, loading DIRECTORY_SEED_FILE into it if set.
func BuildDirectory(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (DirectoryBackend, error) {
	if logger == nil {
		logger = logging.Default()
	}
	var dir DirectoryBackend
	if redisClient != nil {
		dir = directory.NewRedisDirectory(redisClient)
	} else {
		dir = directory.NewInMemoryDirectory()
	}

	if cfg == nil || strings.TrimSpace(cfg.DirectorySeedFile) == "" {
		return dir, nil
	}
	f, err := os.Open(cfg.DirectorySeedFile)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open directory seed: %w", err)
	}
	defer f.Close()
	n, err := directory.Seed(ctx, dir, f)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	logger.Info("directory seeded", "profiles", n, "file", cfg.DirectorySeedFile)
	return dir, nil
}

// BuildDeliveryHandler sends events to SQS when EVENTS_QUEUE_URL is set and
// logs them otherwise.
func BuildDeliveryHandler(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) events.DeliveryHandler {
	if cfg != nil && awsCfg != nil && strings.TrimSpace(cfg.EventsQueueURL) != "" {
		return events.NewSQSHandler(sqs.NewFromConfig(*awsCfg), cfg.EventsQueueURL)
	}
	return events.NewLogHandler(logger)
}

// BuildEventPublisher writes events to the Postgres outbox when a pool is
// available, returning the deliverer that drains it. Without a pool events go
// straight to the delivery handler and the deliverer is nil.
func BuildEventPublisher(cfg *appconfig.Config, pool *pgxpool.Pool, awsCfg *aws.Config, logger *logging.Logger) (appointments.EventPublisher, *events.Deliverer) {
	handler := BuildDeliveryHandler(cfg, awsCfg, logger)
	if pool == nil {
		return events.NewDirectPublisher(handler), nil
	}
	outbox := events.NewOutboxStore(pool)
	deliverer := events.NewDeliverer(outbox, handler, logger)
	if cfg != nil {
		deliverer = deliverer.
			WithBatchSize(int32(cfg.OutboxBatchSize)).
			WithInterval(cfg.OutboxPollInterval)
	}
	return outbox, deliverer
}

// HealthChecks lists the dependency probes for /health.
func HealthChecks(pool *pgxpool.Pool, redisClient *redis.Client) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return checks
}

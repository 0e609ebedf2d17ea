// Package server initializes and runs the portal server: it opens the
// database, wires repositories, services and the notification relay, and
// runs the gRPC and HTTP endpoints until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/abroadportal/internal/logging"
	"github.com/dmitrijs2005/abroadportal/internal/server/auth"
	"github.com/dmitrijs2005/abroadportal/internal/server/config"
	"github.com/dmitrijs2005/abroadportal/internal/server/httpapi"
	"github.com/dmitrijs2005/abroadportal/internal/server/notify"
	"github.com/dmitrijs2005/abroadportal/internal/server/relay"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/abroadportal/internal/server/services"
	"github.com/dmitrijs2005/abroadportal/internal/server/steps"
	"github.com/dmitrijs2005/abroadportal/internal/server/storage"

	gs "github.com/dmitrijs2005/abroadportal/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	dispatcher *notify.Dispatcher
	grpc       *gs.GRPCServer
	http       *httpapi.HTTPServer
	publisher  *relay.Publisher
	consumer   *relay.Consumer
}

func loadCatalog(path string) (*steps.Catalog, error) {
	if path == "" {
		return steps.Default(), nil
	}
	return steps.LoadFile(path)
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	catalog, err := loadCatalog(c.StepCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("step catalog: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	files, err := storage.New(ctx, storage.Config{
		Region:        c.S3Region,
		AccessKey:     c.S3AccessKey,
		SecretKey:     c.S3SecretKey,
		Endpoint:      c.S3Endpoint,
		Bucket:        c.S3Bucket,
		PresignExpiry: c.S3PresignExpiry,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	secret := []byte(c.SecretKey)
	links := auth.NewLinkIssuer(secret, c.LoginLinkValidity, c.LoginLinkBaseURL)
	access := auth.NewAccessIssuer(secret, c.AccessTokenValidity)

	app := &App{config: c, logger: logger, db: db}

	// a nil interface keeps the relay off; in-app notifications still work
	var pub notify.Publisher
	kafkaCfg := relay.KafkaConfig{
		Brokers:  c.KafkaBrokers,
		Username: c.KafkaUsername,
		Password: c.KafkaPassword,
		TLS:      c.KafkaTLS,
	}
	if len(c.KafkaBrokers) > 0 {
		app.publisher = relay.NewPublisher(kafkaCfg, c.OutboundTopic)
		pub = app.publisher
	} else {
		logger.Warn(ctx, "no kafka brokers configured, outbound relay disabled")
	}

	app.dispatcher = notify.NewDispatcher(db, rm, links, pub, c.RelayQueueSize, logger)

	documents := services.NewDocumentService(db, rm, catalog, app.dispatcher, files, logger)
	progression := services.NewProgressionService(db, rm, catalog, app.dispatcher, logger)
	admin := services.NewAdminService(db, rm, catalog, app.dispatcher, logger)
	users := services.NewUserService(db, rm, links, access)
	resubmissions := services.NewResubmissionService(db, rm, catalog, app.dispatcher, logger)

	if c.BootstrapAdminEmail != "" {
		if _, err := admin.EnsureAdmin(ctx, c.BootstrapAdminEmail); err != nil {
			app.Close()
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	app.grpc, err = gs.NewGRPCServer(c.GRPCAddr, logger, gs.Services{
		Users:         users,
		Documents:     documents,
		Progression:   progression,
		Admin:         admin,
		Notifications: services.NewNotificationService(db, rm),
	}, access)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.http = httpapi.New(c.HTTPAddr, logger, resubmissions, users, c.RelayWebhookSecret)

	if len(c.KafkaBrokers) > 0 {
		app.consumer = relay.NewConsumer(kafkaCfg, c.InboundTopic, c.ConsumerGroup, resubmissions, logger)
	}

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// start runs fn in the group; a failure of any component stops the rest.
func (app *App) start(ctx context.Context, cancelFunc context.CancelFunc, wg *sync.WaitGroup, name string, fn func(context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error(ctx, "component stopped", "component", name, "error", err)
			cancelFunc()
		}
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "grpc", app.config.GRPCAddr, "http", app.config.HTTPAddr)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	app.start(ctx, cancelFunc, &wg, "dispatcher", app.dispatcher.Run)
	app.start(ctx, cancelFunc, &wg, "grpc", app.grpc.Run)
	app.start(ctx, cancelFunc, &wg, "http", app.http.Run)
	if app.consumer != nil {
		app.start(ctx, cancelFunc, &wg, "relay_consumer", app.consumer.Run)
	}

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(context.Background(), "shutdown", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases the relay clients and the database.
func (app *App) Close() error {
	var errs []error
	if app.consumer != nil {
		errs = append(errs, app.consumer.Close())
	}
	if app.publisher != nil {
		errs = append(errs, app.publisher.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	return errors.Join(errs...)
}

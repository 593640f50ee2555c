package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkingagent/backend/libs/db"
	libredis "parkingagent/backend/libs/redis"
	"parkingagent/backend/services/parking-agent/internal/clients"
	"parkingagent/backend/services/parking-agent/internal/config"
	"parkingagent/backend/services/parking-agent/internal/models"
	"parkingagent/backend/services/parking-agent/internal/repository"
	"parkingagent/backend/services/parking-agent/internal/service"
	"parkingagent/backend/services/parking-agent/internal/session"
)

// ErrHistoryDisabled is returned by History when no database is configured.
var ErrHistoryDisabled = errors.New("app: run history not configured")

// App wires all dependencies for the parking agent.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	session      *session.Manager
	api          *clients.ParkingClient
	balance      *service.BalanceService
	fines        *service.FineService
	parking      *service.ParkingService
	orchestrator *service.Orchestrator
	history      *repository.RunHistoryRepository

	db    *sql.DB
	redis *goredis.Client
}

// New builds the application graph and restores the persisted session.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, err := a.sessionStore(ctx)
	if err != nil {
		return nil, err
	}

	httpClient := clients.NewDefaultHTTPClient(cfg.API.Timeout)
	identity := clients.NewIdentityClient(cfg.API.BaseURL, httpClient, cfg.API.Credential, cfg.API.Password)
	a.session = session.NewManager(store, identity, cfg.IdentityHeaders(), logger)
	a.session.Restore(ctx)

	a.api = clients.NewParkingClient(cfg.API.BaseURL, httpClient, a.session, cfg.API.OrgID,
		clients.Device{IMEI: cfg.Device.IMEI, UUID: cfg.Device.UUID},
		clients.Card{
			CVV:        cfg.Card.CVV,
			Number:     cfg.Card.Number,
			Expiration: cfg.Card.Expiration,
			Brand:      cfg.Card.Brand,
			Holder:     cfg.Card.Holder,
		},
	)
	notifier := clients.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
		cfg.Telegram.Timeout, cfg.Telegram.PerSecond, logger)

	location := service.Location{Latitude: cfg.Parking.Latitude, Longitude: cfg.Parking.Longitude}
	threshold, topUp := cfg.Balance.Policy()
	a.balance = service.NewBalanceService(a.api, notifier, logger)
	a.fines = service.NewFineService(a.api, notifier, logger)
	a.parking = service.NewParkingService(a.api, models.RuleTable(cfg.Parking.Rules), location, notifier, logger)

	deps := service.OrchestratorDeps{
		Account:  a.api,
		Subject:  a.session,
		Balance:  a.balance,
		Fines:    a.fines,
		Parking:  a.parking,
		Notifier: notifier,
		Policy:   service.BalancePolicy{Threshold: threshold, TopUp: topUp},
	}

	if cfg.HistoryEnabled() {
		if err := a.openHistory(ctx); err != nil {
			logger.Warn("run history unavailable", zap.Error(err))
		} else {
			deps.Recorder = a.history
		}
	}

	a.orchestrator = service.NewOrchestrator(deps, logger)
	return a, nil
}

func (a *App) sessionStore(ctx context.Context) (session.Store, error) {
	if !a.cfg.UsesRedisSession() {
		return session.NewFileStore(a.cfg.Session.File), nil
	}
	client, err := libredis.NewRedisClient(ctx, libredis.Options{
		Addr:     a.cfg.Session.RedisAddr,
		Password: a.cfg.Session.RedisPassword,
		DB:       a.cfg.Session.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("app: session redis: %w", err)
	}
	a.redis = client
	return session.NewRedisStore(client, a.cfg.Session.RedisKey), nil
}

func (a *App) openHistory(ctx context.Context) error {
	sqlDB, err := db.NewPostgresDB(ctx, a.cfg.History.DSN)
	if err != nil {
		return err
	}
	repo := repository.NewRunHistoryRepository(sqlDB)
	if err := repo.EnsureSchema(ctx); err != nil {
		sqlDB.Close()
		return err
	}
	a.db = sqlDB
	a.history = repo
	return nil
}

// Run executes one orchestrator pass.
func (a *App) Run(ctx context.Context) (*models.RunReport, error) {
	return a.orchestrator.RunOnce(ctx)
}

// Balance returns the account balance.
func (a *App) Balance(ctx context.Context) (models.Balance, error) {
	subjectID, err := a.session.SubjectID(ctx)
	if err != nil {
		return models.Balance{}, err
	}
	return a.balance.Balance(ctx, subjectID)
}

// TopUp purchases amount of credit regardless of the current balance.
func (a *App) TopUp(ctx context.Context, amount decimal.Decimal) (service.TopUpResult, error) {
	subjectID, err := a.session.SubjectID(ctx)
	if err != nil {
		return service.TopUpResult{}, err
	}
	return a.balance.TopUp(ctx, subjectID, amount)
}

// Fines lists fines in every state for the given plates, or for every
// vehicle on the account when plates is empty.
func (a *App) Fines(ctx context.Context, plates []string) ([]models.Fine, error) {
	if len(plates) == 0 {
		vehicles, err := a.parkingVehicles(ctx)
		if err != nil {
			return nil, err
		}
		plates = models.Plates(vehicles)
	}
	return a.fines.ListFines(ctx, plates)
}

// PayFines settles open fines for every vehicle on the account.
func (a *App) PayFines(ctx context.Context) (service.Settlement, error) {
	vehicles, err := a.parkingVehicles(ctx)
	if err != nil {
		return service.Settlement{}, err
	}
	return a.fines.SettleOpenFines(ctx, models.Plates(vehicles))
}

// Park starts a manual activation. Without a location the configured one is used.
func (a *App) Park(ctx context.Context, in service.ManualActivation) error {
	return a.parking.StartManual(ctx, in)
}

// History returns the most recent runs.
func (a *App) History(ctx context.Context, limit int) ([]models.RunReport, error) {
	if a.history == nil {
		return nil, ErrHistoryDisabled
	}
	return a.history.Recent(ctx, limit)
}

func (a *App) parkingVehicles(ctx context.Context) ([]models.Vehicle, error) {
	vehicles, err := a.api.ListVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return vehicles, nil
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}

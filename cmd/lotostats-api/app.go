package main

import (
	"context"

	"github.com/MarcoPoloResearchLab/lotostats/internal/config"
	"github.com/MarcoPoloResearchLab/lotostats/internal/database"
	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	"github.com/MarcoPoloResearchLab/lotostats/internal/drawsync"
	"github.com/MarcoPoloResearchLab/lotostats/internal/logging"
	"github.com/MarcoPoloResearchLab/lotostats/internal/predict"
	"github.com/MarcoPoloResearchLab/lotostats/internal/provider"
	"github.com/MarcoPoloResearchLab/lotostats/internal/server"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// application holds the components shared by the serve and sync commands.
type application struct {
	logger      *zap.Logger
	db          *gorm.DB
	store       *draws.Store
	queries     *draws.Queries
	coordinator *drawsync.Coordinator
	predictor   server.Predictor
}

func newApplication(ctx context.Context, appConfig config.AppConfig) (*application, error) {
	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return nil, err
	}

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	app := &application{logger: logger, db: db}

	app.store, err = draws.NewStore(draws.StoreConfig{Database: db, Logger: logger})
	if err != nil {
		app.close()
		return nil, err
	}
	app.queries, err = draws.NewQueries(app.store)
	if err != nil {
		app.close()
		return nil, err
	}

	fetcher, err := provider.NewClient(provider.Config{
		BaseURL: appConfig.ProviderBaseURL,
		Referer: appConfig.ProviderReferer,
		Timeout: appConfig.ProviderTimeout,
		Logger:  logger,
	})
	if err != nil {
		app.close()
		return nil, err
	}

	app.coordinator, err = drawsync.NewCoordinator(drawsync.Config{
		Store:         app.store,
		Fetcher:       fetcher,
		InitialMonths: appConfig.SyncInitialMonths,
		Logger:        logger,
	})
	if err != nil {
		app.close()
		return nil, err
	}

	if appConfig.PredictionsEnabled() {
		generator, err := predict.NewGenAIGenerator(ctx, appConfig.AIAPIKey, appConfig.AIModel)
		if err != nil {
			app.close()
			return nil, err
		}
		predictor, err := predict.NewPredictor(predict.PredictorConfig{
			Generator:     generator,
			HistoryWindow: appConfig.AIHistoryWindow,
			Logger:        logger,
		})
		if err != nil {
			app.close()
			return nil, err
		}
		app.predictor = predictor
		logger.Info("predictions enabled", zap.String("generator", generator.Name()))
	} else {
		logger.Info("predictions disabled: ai.api_key is not set")
	}

	return app, nil
}

func (app *application) close() {
	if err := database.Close(app.db); err != nil {
		app.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = app.logger.Sync()
}

func marshalIndent(value interface{}) ([]byte, error) {
	return json.MarshalIndent(value, "", "  ")
}

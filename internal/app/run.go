package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"satquery/internal/config"
	"satquery/internal/db"
	"satquery/internal/httpapi"
	"satquery/internal/metrics"
	"satquery/internal/migrate"
	"satquery/internal/modules/saturation"
	"satquery/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"corsAllowedOrigins", cfg.CORSAllowedOrigins,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
		"sqliteLogStatements", cfg.SQLiteLogStatements,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttRequestTopic", cfg.MQTTRequestTopic,
		"mqttResponseTopic", cfg.MQTTResponseTopic,
	)

	dbConn, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	applied, err := migrate.Run(ctx, dbConn, logger)
	if err != nil {
		return err
	}
	logger.Info("database ready", "migrationsApplied", applied)

	catalog, err := saturation.LoadCatalog(ctx, dbConn)
	if err != nil {
		return err
	}
	if catalog.Registry.Len() == 0 {
		return errors.New("species catalog is empty")
	}
	logger.Info("species catalog loaded", "species", catalog.Registry.IDs())

	m := metrics.New()
	mux := httpapi.NewMux(dbConn, catalog.Registry, m)
	svc, err := saturation.RegisterFeature(mux, catalog, m)
	if err != nil {
		return err
	}

	var responder *mqtt.Responder
	if cfg.MQTTEnabled {
		responder, err = saturation.NewMQTTResponder(cfg, logger, m, svc)
		if err != nil {
			return err
		}
		// a short connect timeout keeps startup going when the broker is down;
		// the client keeps retrying in the background and subscribes once
		// the broker is reachable
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = responder.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt not connected yet (retrying in background)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux, logger, m)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if responder != nil {
		logger.Info("mqtt disconnecting")
		responder.Disconnect()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/lumachat/chatrelay/internal/auth"
	"github.com/lumachat/chatrelay/internal/chat/mongodb"
	"github.com/lumachat/chatrelay/internal/producer"
	"github.com/lumachat/chatrelay/internal/realtime"
	"github.com/lumachat/chatrelay/internal/server"
)

type App struct {
	logger          *zap.Logger
	settings        Settings
	stores          *mongodb.Stores
	websocketServer *server.WebSocketServer
	restServer      *server.RESTServer
}

func NewApp(logger *zap.Logger, settings Settings, client *mongo.Client) *App {
	originChecker := server.NewOriginChecker(settings.Origins())
	websocketUpgrader := &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       originChecker.Check,
		EnableCompression: true,
	}

	verifier := auth.NewVerifier(settings.JWTSecret)
	stores := mongodb.NewStores(logger, client)

	registry := realtime.NewRegistry(logger)
	dispatcher := realtime.NewDispatcher(logger, registry)
	tracker := realtime.NewTracker(logger, registry, dispatcher, stores.Users)
	tracker.Track()

	producers := producer.New(logger, stores.Chats, stores.Messages, stores.Users, dispatcher)

	websocketServer := server.NewWebSocketServer(
		logger,
		websocketUpgrader,
		verifier,
		registry,
		producers,
	)
	restServer := server.NewRESTServer(
		logger,
		verifier,
		producers,
		registry,
	)

	return &App{
		logger,
		settings,
		stores,
		websocketServer,
		restServer,
	}
}

func (a *App) setup(ctx context.Context) error {
	setupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := a.stores.Setup(setupCtx); err != nil {
		return err
	}

	a.startHttpServer(ctx)

	return nil
}

func (a *App) startHttpServer(ctx context.Context) {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	address := fmt.Sprintf("0.0.0.0:%d", a.settings.Port)

	router := mux.NewRouter().
		PathPrefix(a.settings.BasePath).
		Subrouter()

	a.websocketServer.Register(router)
	a.restServer.Register(router)

	httpServer := &http.Server{
		Addr:    address,
		Handler: router,
	}

	a.logger.Info("starting http server",
		zap.String("address", address))

	go func() {
		err := httpServer.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("failed to start http server",
				zap.Error(err))
		}
	}()

	<-notifyCtx.Done()

	a.logger.Info("stopping http server")

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCtxCancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Fatal("http server shutdown failed",
			zap.Error(err))
	}

	a.logger.Info("http server stopped")
}

func main() {
	ctx := context.Background()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		panic(err)
	}

	logger, err := buildZapLogger(settings.LogEncoding)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	client, err := mongo.Connect(options.Client().ApplyURI(settings.MongoDBURI))
	if err != nil {
		logger.Fatal("failed to connect to mongodb", zap.Error(err))
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	app := NewApp(logger, settings, client)

	err = app.setup(ctx)
	if err != nil {
		logger.Fatal("failed to setup", zap.Error(err))
	}
}

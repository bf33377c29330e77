// Package server wires the websocket endpoint to the delivery core:
// upgrade, authentication, connection registration, event routing and
// disconnect cleanup.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"chatcore/internal/chat"
	"chatcore/internal/core"
	"chatcore/internal/registry"
	"chatcore/internal/router"
	"chatcore/internal/server/middleware"
	"chatcore/internal/store"
	"chatcore/pkg/config"
	"chatcore/pkg/transport"
)

type App struct {
	logger      *slog.Logger
	store       store.Store
	reg         *registry.Registry
	core        *core.Core
	eventRouter *router.EventRouter
	wg          sync.WaitGroup
	http        *http.Server
	config      *config.Config

	ctx context.Context
}

func NewApp(logger *slog.Logger, rootCtx context.Context, cfg *config.Config, st store.Store) *App {
	reg := registry.New(logger)
	c := core.New(st, reg, logger)
	eventRouter := router.New(logger, c)

	app := &App{
		logger:      logger,
		store:       st,
		reg:         reg,
		core:        c,
		eventRouter: eventRouter,
		config:      cfg,
		ctx:         rootCtx,
	}

	connCycler := func(userID string) {
		if oldest, found := reg.OldestConnection(userID); found {
			logger.Info("cycling connection: closing oldest",
				slog.String("userID", userID),
				slog.String("connID", oldest.ID.String()),
			)
			oldest.Transport.Close(errors.New("connection cycled by new connection"))
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/ws",
		middleware.Chain(http.HandlerFunc(app.upgradeHandler),
			middleware.RequestMetadataMiddleware(),
			middleware.NewRequestLogger(logger),
			middleware.NewAuthMiddleware(logger, cfg.Server.Auth.JWTSecret),
			middleware.NewConnectionLimiter(logger, reg.ConnectionCount, connCycler, cfg.Server.ConnectionLimit),
		),
	)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	app.http = &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
		BaseContext: func(net.Listener) context.Context {
			return app.ctx
		},
	}
	return app
}

func (a *App) Run() error {
	go func() {
		a.logger.Info("server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("http server failed", slog.Any("error", err))
		}
	}()

	<-a.ctx.Done()
	return a.Shutdown()
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
	connLogger := a.logger.With(
		slog.String("remoteAddr", reqMeta.IP),
		slog.String("userID", reqMeta.UserID),
	)

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		connLogger.Error("failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		transport.ConnectionConfig{
			ReadTimeout:     a.config.Transport.ReadTimeout,
			MaxMessageBytes: a.config.Transport.MaxMessageBytes,
		},
		nil,
		nil,
		a.logger,
	)

	a.reg.Register(&registry.Conn{
		ID:        conn.ID(),
		Identity:  a.resolveIdentity(r.Context(), reqMeta),
		Transport: conn,
		CreatedAt: time.Now(),
	})

	conn.SetOnMessageHandler(a.eventRouter.HandleMessage)
	conn.SetOnCloseHandler(func(id uuid.UUID, err error) {
		connLogger.Info("connection closed", slog.String("connID", id.String()))
		a.core.HandleDisconnect(id)
	})

	connLogger.Info("user connection established", slog.String("connID", conn.ID().String()))
	conn.Run()
	<-conn.Done()
}

// resolveIdentity fetches display attributes once per connection. The
// token alone is enough to operate; a store miss degrades to id+email.
func (a *App) resolveIdentity(ctx context.Context, reqMeta *middleware.RequestMetadata) chat.User {
	user, err := a.store.UserByID(ctx, reqMeta.UserID)
	if err != nil {
		return chat.User{ID: reqMeta.UserID, Email: reqMeta.Email}
	}
	return user
}

// Shutdown drains gracefully: stop accepting, close every live
// connection, wait for their pumps to finish cleanup.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	for _, conn := range a.reg.AllConnections() {
		conn.Transport.Close(errors.New("graceful shutdown"))
	}
	a.wg.Wait()
	a.logger.Info("server shut down gracefully")
	return nil
}

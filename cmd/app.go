package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"orderflow/api"
	orderapp "orderflow/application/order"
	"orderflow/config"
	"orderflow/infrastructure/realtime"
	"orderflow/pkg/logger"
	"orderflow/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 应用程序
type App struct {
	config          *config.Config
	router          *api.Router
	server          *http.Server
	db              *gorm.DB
	hub             *realtime.Hub
	orders          *orderapp.ApplicationService
	shutdownTracing tracing.ShutdownFunc
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", a.server.Addr),
			zap.String("realtime_path", a.config.Realtime.Path))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			a.cleanup(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	return a.Shutdown()
}

// Shutdown 顺序: 停止接收请求 -> 关闭 websocket -> 等待提交后推送 -> 释放资源
func (a *App) Shutdown() error {
	timeout := a.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("Shutting down server")
	// hijacked websocket 连接不受 server.Shutdown 管理，需要单独关闭
	a.hub.Close()
	err := a.server.Shutdown(ctx)
	a.orders.Wait()
	a.cleanup(ctx)

	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func (a *App) cleanup(ctx context.Context) {
	if err := a.shutdownTracing(ctx); err != nil {
		logger.Warn("Failed to flush traces", zap.Error(err))
	}
	CloseDatabase(a.db)
	_ = logger.Sync()
}

// Handler 获取 HTTP handler（用于测试）
func (a *App) Handler() http.Handler {
	return a.router.GetEngine()
}

package handler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName имя сервиса в gRPC health
const ServiceName = "swimmer.Tracker"

// HealthChecker источник состояния готовности
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthReporter публикует готовность детектора через gRPC health
type HealthReporter struct {
	checker HealthChecker
	server  *health.Server
	logger  *logrus.Logger
	timeout time.Duration
}

// NewHealthReporter создает reporter, до первой проверки сервис NOT_SERVING
func NewHealthReporter(checker HealthChecker, timeout time.Duration, logger *logrus.Logger) *HealthReporter {
	server := health.NewServer()
	server.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthReporter{
		checker: checker,
		server:  server,
		logger:  logger,
		timeout: timeout,
	}
}

// Server health сервер для регистрации в grpc.Server
func (r *HealthReporter) Server() *health.Server {
	return r.server
}

// Refresh проверяет детектор и обновляет статус
func (r *HealthReporter) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	status := healthpb.HealthCheckResponse_SERVING
	if err := r.checker.CheckHealth(ctx); err != nil {
		r.logger.Debugf("gRPC health: детектор недоступен: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	r.server.SetServingStatus(ServiceName, status)
	r.server.SetServingStatus("", status)
	return status
}

// Run обновляет статус с интервалом до отмены контекста
func (r *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	r.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.server.Shutdown()
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

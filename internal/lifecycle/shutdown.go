// internal/lifecycle/shutdown.go
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// CloseFunc allows using a function as an io.Closer.
type CloseFunc func() error

func (f CloseFunc) Close() error {
	return f()
}

// ShutdownHandler closes registered services in reverse registration order,
// so a service is always closed before the things it depends on.
type ShutdownHandler struct {
	logger   *zap.Logger
	services []namedService
	mu       sync.Mutex
	timeout  time.Duration
	once     sync.Once
	err      error
}

type namedService struct {
	name   string
	closer io.Closer
}

// NewShutdownHandler creates a handler whose whole shutdown is bounded by timeout.
func NewShutdownHandler(logger *zap.Logger, timeout time.Duration) *ShutdownHandler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ShutdownHandler{
		logger:  logger.Named("shutdown"),
		timeout: timeout,
	}
}

// Timeout returns the shutdown budget.
func (sh *ShutdownHandler) Timeout() time.Duration { return sh.timeout }

// Add registers a service for shutdown.
func (sh *ShutdownHandler) Add(name string, closer io.Closer) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.services = append(sh.services, namedService{name: name, closer: closer})
	sh.logger.Debug("Registered service for shutdown", zap.String("service", name))
}

// AddFunc registers a shutdown function.
func (sh *ShutdownHandler) AddFunc(name string, fn func() error) {
	sh.Add(name, CloseFunc(fn))
}

// WaitForSignal blocks until SIGINT/SIGTERM or ctx is done and reports
// which one happened.
func WaitForSignal(ctx context.Context) (os.Signal, error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		return sig, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown closes every service once; later calls return the first result.
// A service that does not finish before ctx expires is abandoned and
// reported as timed out.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	sh.once.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, sh.timeout)
		defer cancel()
		sh.err = sh.closeAll(ctx)
	})
	return sh.err
}

func (sh *ShutdownHandler) closeAll(ctx context.Context) error {
	sh.mu.Lock()
	services := make([]namedService, len(sh.services))
	copy(services, sh.services)
	sh.mu.Unlock()

	sh.logger.Info("Starting graceful shutdown", zap.Int("services", len(services)))

	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		s := services[i]
		done := make(chan error, 1)
		go func() {
			sh.logger.Info("Shutting down service", zap.String("service", s.name))
			done <- s.closer.Close()
		}()

		select {
		case err := <-done:
			if err != nil {
				sh.logger.Error("Failed to shutdown service", zap.String("service", s.name), zap.Error(err))
				errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
				continue
			}
			sh.logger.Info("Service shutdown complete", zap.String("service", s.name))
		case <-ctx.Done():
			sh.logger.Error("Shutdown timeout for service", zap.String("service", s.name))
			errs = append(errs, fmt.Errorf("%s: shutdown timeout: %w", s.name, ctx.Err()))
		}
	}

	if len(errs) > 0 {
		sh.logger.Error("Shutdown completed with errors", zap.Int("error_count", len(errs)))
		return errors.Join(errs...)
	}
	sh.logger.Info("Graceful shutdown completed successfully")
	return nil
}

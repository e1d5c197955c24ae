package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	applogger "CashPilot/pkg/logger"
)

// Component is a long-running part of the process.
type Component interface {
	Start() error
	Stop(ctx context.Context) error
}

type namedComponent struct {
	name string
	c    Component
}

type namedCloser struct {
	name string
	fn   func() error
}

// App starts components in registration order and stops them in reverse.
type App struct {
	log             *applogger.Logger
	shutdownTimeout time.Duration
	components      []namedComponent
	closers         []namedCloser
}

func New(l *applogger.Logger, shutdownTimeout time.Duration) *App {
	if l == nil {
		l = applogger.Nop()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	return &App{log: l, shutdownTimeout: shutdownTimeout}
}

// Add registers a component. Nil components are skipped so optional parts can be passed as is.
func (a *App) Add(name string, c Component) *App {
	if c == nil || isNilPointer(c) {
		return a
	}
	a.components = append(a.components, namedComponent{name: name, c: c})
	return a
}

// OnClose registers a resource closed after every component has stopped, in reverse order.
func (a *App) OnClose(name string, fn func() error) *App {
	if fn != nil {
		a.closers = append(a.closers, namedCloser{name: name, fn: fn})
	}
	return a
}

// Run starts everything and blocks until ctx is done, then shuts down.
// When a component fails to start, the ones already started are stopped and the error is returned.
func (a *App) Run(ctx context.Context) error {
	for i, nc := range a.components {
		if err := nc.c.Start(); err != nil {
			a.log.Error("component start failed", applogger.String("component", nc.name), applogger.Error(err))
			startErr := fmt.Errorf("start %s: %w", nc.name, err)
			return errors.Join(startErr, a.shutdown(a.components[:i]))
		}
		a.log.Info("component started", applogger.String("component", nc.name))
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown(a.components)
}

func (a *App) shutdown(started []namedComponent) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		nc := started[i]
		if err := nc.c.Stop(ctx); err != nil {
			a.log.Warn("component stop error", applogger.String("component", nc.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", nc.name, err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		cl := a.closers[i]
		if err := cl.fn(); err != nil {
			a.log.Warn("close error", applogger.String("resource", cl.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", cl.name, err))
		}
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}

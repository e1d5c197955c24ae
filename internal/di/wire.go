//go:build wireinject
// +build wireinject

package di

import (
	internalrepo "CashPilot/internal/repository"
	"CashPilot/internal/usecase"
	"CashPilot/pkg/config"
	"CashPilot/pkg/server"

	"github.com/google/wire"
)

var coreSet = wire.NewSet(
	ProvideLogger,
	ProvideLocation,
	ProvideLedger,
)

// InitializeApp wires the long-running service.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		coreSet,
		ProvideRegistry,
		ProvideMetrics,
		ProvideRedisClient,
		ProvideCache,
		ProvideAlertPublisher,
		ProvideCashFlowUseCase,
		ProvideRefreshJob,
		ProvideQueue,
		ProvideJobEnqueuer,
		ProvideLedgerEventsHandler,
		ProvideKafkaConsumer,
		ProvideScheduler,
		ProvideLimiter,
		ProvideCashFlowHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeReporter wires an uncached use case for the report command.
func InitializeReporter(cfg *config.Config) (*usecase.CashFlowUseCase, func(), error) {
	wire.Build(coreSet, ProvideReportUseCase)
	return nil, nil, nil
}

// InitializeLedger opens only the ledger, for schema migration.
func InitializeLedger(cfg *config.Config) (*internalrepo.SQLLedger, func(), error) {
	wire.Build(ProvideLogger, ProvideLedger)
	return nil, nil, nil
}

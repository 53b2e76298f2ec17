package usecases

import (
	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/architeacher/svc-broker-link/internal/service"
	"github.com/architeacher/svc-broker-link/internal/shared/decorator"
	"github.com/architeacher/svc-broker-link/internal/usecases/commands"
	"github.com/architeacher/svc-broker-link/internal/usecases/queries"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	WebApplication struct {
		Commands Commands
		Queries  Queries
	}

	Commands struct {
		SendMessageHandler commands.SendMessageHandler
	}

	Queries struct {
		FetchHealthReportQueryHandler queries.FetchHealthReportQueryHandler
	}
)

func NewWebApplication(
	appService service.ApplicationService,
	logger infrastructure.Logger,
	tracerProvider otelTrace.TracerProvider,
	metricsClient decorator.MetricsClient,
) *WebApplication {
	return &WebApplication{
		Commands: Commands{
			SendMessageHandler: commands.NewSendMessageHandler(appService, logger, tracerProvider, metricsClient),
		},
		Queries: Queries{
			FetchHealthReportQueryHandler: queries.NewFetchHealthReportQueryHandler(
				appService, logger, tracerProvider, metricsClient,
			),
		},
	}
}

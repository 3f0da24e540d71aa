package app

import (
	"context"
	"fmt"
	"time"

	"github.com/allisson/missionhub/internal/command"
	"github.com/allisson/missionhub/internal/command/handlers"
	"github.com/allisson/missionhub/internal/eventlog"
	"github.com/allisson/missionhub/internal/http"
	"github.com/allisson/missionhub/internal/hub"
	"github.com/allisson/missionhub/internal/metrics"
	outboundUseCase "github.com/allisson/missionhub/internal/outbound/usecase"
	natsTransport "github.com/allisson/missionhub/internal/transport/nats"
)

// CapabilityMaps returns the command to capability maps, with CAPABILITY_MAP_FILE applied.
func (c *Container) CapabilityMaps() (command.CapabilityMaps, error) {
	return c.capabilityMaps.get(func() (command.CapabilityMaps, error) {
		return command.LoadCapabilityMaps(c.config.CapabilityMapFile)
	})
}

// MissionRouter returns the mission-sync command router.
func (c *Container) MissionRouter() (*command.Router, error) {
	return c.missionRouter.get(c.initMissionRouter)
}

// ChecklistRouter returns the checklist-sync command router.
func (c *Container) ChecklistRouter() (*command.Router, error) {
	return c.checklistRouter.get(c.initChecklistRouter)
}

// Transport returns the NATS mesh transport. It dials the server on first access.
func (c *Container) Transport() (*natsTransport.Transport, error) {
	return c.transport.get(c.initTransport)
}

// OutboundQueue returns the outbound delivery queue. Workers start with Start.
func (c *Container) OutboundQueue() (*outboundUseCase.Queue, error) {
	return c.outboundQueue.get(c.initOutboundQueue)
}

// Hub returns the inbound batch dispatcher.
func (c *Container) Hub() (*hub.Hub, error) {
	return c.hub.get(c.initHub)
}

// HTTPServer returns the admin HTTP server.
func (c *Container) HTTPServer() (*http.Server, error) {
	return c.httpServer.get(c.initHTTPServer)
}

// MetricsServer returns the Prometheus metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	return c.metricsServer.get(c.initMetricsServer)
}

// ServeInbound adapts transport batches to the hub.
func (c *Container) ServeInbound(h *hub.Hub) natsTransport.InboundHandler {
	return func(ctx context.Context, inbound *natsTransport.Inbound) error {
		return h.HandleInbound(ctx, hub.Inbound{
			SenderIdentity: inbound.SenderIdentity,
			ReplyTo:        inbound.ReplyTo,
			Commands:       inbound.Commands,
		})
	}
}

func (c *Container) initTransport() (*natsTransport.Transport, error) {
	transport, err := natsTransport.Connect(natsTransport.Config{
		URL:               c.config.NATSURL,
		SubjectPrefix:     c.config.NATSSubjectPrefix,
		PropagationStream: c.config.NATSPropagationStream,
		PropagationMaxAge: c.config.NATSPropagationMaxAge,
		Identity:          c.config.HubIdentity,
	}, c.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to connect mesh transport: %w", err)
	}
	return transport, nil
}

// initMissionRouter creates the mission-sync router and registers its handlers.
func (c *Container) initMissionRouter() (*command.Router, error) {
	maps, err := c.CapabilityMaps()
	if err != nil {
		return nil, fmt.Errorf("failed to load capability maps for mission router: %w", err)
	}

	missions, err := c.MissionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get mission use case for mission router: %w", err)
	}

	topics, err := c.TopicRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get topic registry for mission router: %w", err)
	}

	registry := command.NewRegistry()
	handlers.RegisterMission(registry, handlers.MissionDeps{
		Missions: missions,
		Topics:   topics,
	})

	return c.newRouter(command.NamespaceMission, maps.Mission, registry)
}

// initChecklistRouter creates the checklist-sync router and registers its handlers.
func (c *Container) initChecklistRouter() (*command.Router, error) {
	maps, err := c.CapabilityMaps()
	if err != nil {
		return nil, fmt.Errorf("failed to load capability maps for checklist router: %w", err)
	}

	missions, err := c.MissionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get mission use case for checklist router: %w", err)
	}

	registry := command.NewRegistry()
	handlers.RegisterChecklist(registry, missions)

	return c.newRouter(command.NamespaceChecklist, maps.Checklist, registry)
}

func (c *Container) newRouter(
	namespace string,
	capabilityMap map[string]string,
	registry *command.Registry,
) (*command.Router, error) {
	authorizer, err := c.AuthorizerUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorizer for %s router: %w", namespace, err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for %s router: %w", namespace, err)
	}

	return command.NewRouter(
		command.Config{
			Namespace:     namespace,
			HubIdentity:   c.config.HubIdentity,
			CapabilityMap: capabilityMap,
		},
		registry,
		authorizer,
		c.EventLog(),
		businessMetrics,
		c.Logger(),
	), nil
}

// initOutboundQueue creates the queue over the NATS transport. The watchdog keeps a
// stuck connection from pinning a worker past SendTimeout.
func (c *Container) initOutboundQueue() (*outboundUseCase.Queue, error) {
	transport, err := c.Transport()
	if err != nil {
		return nil, fmt.Errorf("failed to get transport for outbound queue: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for outbound queue: %w", err)
	}

	queue := outboundUseCase.NewQueue(
		outboundUseCase.Config{
			Capacity:    c.config.OutboundQueueCapacity,
			Workers:     c.config.OutboundWorkers,
			SendTimeout: c.config.OutboundSendTimeout,
			MaxAttempts: c.config.OutboundMaxAttempts,
			Backoff:     c.config.OutboundBackoff,
			StopTimeout: c.config.OutboundStopTimeout,
		},
		outboundUseCase.Watchdog(transport),
		businessMetrics,
		c.Logger().With("component", "outbound"),
	)

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider != nil {
		err = metrics.RegisterQueueGauges(provider.MeterProvider(), c.config.MetricsNamespace, func() metrics.QueueDepth {
			stats := queue.Stats()
			return metrics.QueueDepth{Queued: stats.Queued, InFlight: stats.InFlight}
		})
		if err != nil {
			return nil, err
		}
	}
	return queue, nil
}

// initHub creates the hub over both routers and the outbound queue.
func (c *Container) initHub() (*hub.Hub, error) {
	missionRouter, err := c.MissionRouter()
	if err != nil {
		return nil, err
	}

	checklistRouter, err := c.ChecklistRouter()
	if err != nil {
		return nil, err
	}

	topics, err := c.TopicRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get topic registry for hub: %w", err)
	}

	queue, err := c.OutboundQueue()
	if err != nil {
		return nil, err
	}

	return hub.New(
		c.config.HubIdentity,
		missionRouter,
		checklistRouter,
		topics,
		queue,
		c.EventLog(),
		c.Logger(),
	), nil
}

// initHTTPServer creates the admin HTTP server with all its routes.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	grantHandler, err := c.GrantHandler()
	if err != nil {
		return nil, err
	}

	routerConfig := http.RouterConfig{
		GinMode:                 c.config.GetGinMode(),
		AdminAPIToken:           c.config.AdminAPIToken,
		RateLimitEnabled:        c.config.RateLimitEnabled,
		RateLimitRequestsPerSec: c.config.RateLimitRequestsPerSec,
		RateLimitBurst:          c.config.RateLimitBurst,
		CORSEnabled:             c.config.CORSEnabled,
		CORSAllowOrigins:        c.config.CORSAllowOrigins,
		MetricsNamespace:        c.config.MetricsNamespace,
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider != nil {
		routerConfig.MeterProvider = provider.MeterProvider()
	}

	// Stats are exposed only when the queue was built before the server, as the server
	// command does.
	var queueStats http.QueueStats
	if queue, ok := c.outboundQueue.peek(); ok {
		queueStats = queue
	}

	var server *http.Server
	if c.UsesMemoryStore() {
		server = http.NewServer(nil, c.config.ServerHost, c.config.ServerPort, logger)
		server.UseMemoryStore()
	} else {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for http server: %w", err)
		}
		server = http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	}

	server.SetupRouter(routerConfig, grantHandler, eventlog.NewHandler(c.EventLog(), logger), queueStats)
	return server, nil
}

// initMetricsServer creates the metrics server when metrics are enabled.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}

	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, provider.Handler(), c.Logger()), nil
}

// shutdownTimeout bounds container shutdown from the server command.
const shutdownTimeout = 10 * time.Second

// ShutdownTimeout returns how long callers should allow Shutdown to run.
func (c *Container) ShutdownTimeout() time.Duration {
	if c.config.OutboundStopTimeout > 0 {
		return c.config.OutboundStopTimeout + shutdownTimeout
	}
	return shutdownTimeout
}

// Package app builds the service's object graph from configuration. The
// graph is created once at startup and discarded at shutdown.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gsu-cloud/turbine-cloud/internal/alarming"
	"github.com/gsu-cloud/turbine-cloud/internal/alerts"
	"github.com/gsu-cloud/turbine-cloud/internal/analysis"
	"github.com/gsu-cloud/turbine-cloud/internal/api"
	"github.com/gsu-cloud/turbine-cloud/internal/capture"
	"github.com/gsu-cloud/turbine-cloud/internal/fleet"
	"github.com/gsu-cloud/turbine-cloud/internal/heartbeat"
	"github.com/gsu-cloud/turbine-cloud/internal/ingest"
	"github.com/gsu-cloud/turbine-cloud/internal/mirror"
	"github.com/gsu-cloud/turbine-cloud/internal/notification"
	"github.com/gsu-cloud/turbine-cloud/internal/queue"
	"github.com/gsu-cloud/turbine-cloud/internal/state"
	"github.com/gsu-cloud/turbine-cloud/internal/stream"
	"github.com/gsu-cloud/turbine-cloud/internal/watchdog"
	"github.com/gsu-cloud/turbine-cloud/pkg/config"
)

const redisPingTimeout = 2 * time.Second

// App owns every long-lived component of the service.
type App struct {
	State    *state.Store
	Alerts   *alerts.Ring
	Captures *capture.Store
	Pool     *analysis.Pool
	Fleet    *fleet.Registry
	Hub      *stream.Hub
	Timers   *watchdog.Scheduler
	Hotspots *alarming.StateManager

	server    *api.Server
	closers   []func() error
	stopHub   context.CancelFunc
	hubDone   chan struct{}
	startedAt time.Time
}

// Stats is the body of GET /api/stats.
type Stats struct {
	Uptime        string                  `json:"uptime"`
	Analysis      analysis.PoolStats      `json:"analysis"`
	Fleet         fleet.RegistryStats     `json:"fleet"`
	Watchdog      watchdog.SchedulerStats `json:"watchdog"`
	StreamClients int                     `json:"stream_clients"`
	Alerts        int                     `json:"alerts"`
	AlertCapacity int                     `json:"alert_capacity"`
	HotspotStates int                     `json:"hotspot_states"`
}

// New wires the service. Redis and Kafka are only connected when
// configured; without Kafka, hotspot emails are sent directly.
func New(cfg *config.Config) (*App, error) {
	captures, err := capture.New(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}

	a := &App{
		State:    state.NewStore(cfg.Defaults, state.WithStaleAfter(cfg.State.StaleAfter)),
		Alerts:   alerts.NewRing(cfg.State.AlertHistory),
		Captures: captures,
		Pool:     analysis.NewPool(cfg.Analysis.Workers, cfg.Analysis.QueueSize),
		Fleet:    fleet.NewRegistry(cfg.State.MaxTurbines, cfg.State.StaleAfter),
		Hub:      stream.NewHub(),
		Timers:   watchdog.NewScheduler(),
		Hotspots: alarming.NewStateManager(),
	}

	dog := watchdog.New(a.Timers, a.State.Status, cfg.State.StaleAfter, a.Hub)

	heartbeatObservers := []heartbeat.Observer{a.Fleet, a.Hub, dog}
	alertObservers := []ingest.Observer{a.Fleet, a.Hub}
	notifiers := []alarming.Notifier{a.Hub}

	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)

		m := mirror.New(client, cfg.Redis.TTL, a.Alerts.Cap())
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		if err := m.Ping(ctx); err != nil {
			log.Printf("WARNING: Redis at %s is not reachable, mirror writes will fail until it is: %v", cfg.Redis.Addr, err)
		} else {
			fmt.Println("Connected to Redis")
		}
		cancel()

		heartbeatObservers = append(heartbeatObservers, m)
		alertObservers = append(alertObservers, m)
	}

	if cfg.Kafka.Enabled() {
		alertProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
		hotspotProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicHotspots)
		a.closers = append(a.closers, alertProducer.Close, hotspotProducer.Close)

		alertObservers = append(alertObservers, queue.NewAlertPublisher(alertProducer))
		notifiers = append(notifiers, queue.NewHotspotPublisher(hotspotProducer))
		fmt.Printf("Kafka producers initialized (alerts=%s, hotspots=%s)\n", cfg.Kafka.TopicAlerts, cfg.Kafka.TopicHotspots)
	} else {
		notifiers = append(notifiers, notification.NewEmailNotifier(&cfg.SMTP))
	}

	evaluator := alarming.NewEvaluator(a.Hotspots, a.State.Config, cfg.Hotspot.ConfirmCaptures, notifiers...)
	alertObservers = append(alertObservers, evaluator)

	a.server = api.NewServer(api.Deps{
		State:          a.State,
		Alerts:         a.Alerts,
		Captures:       a.Captures,
		Analyzer:       a.Pool,
		Ingest:         ingest.NewPipeline(a.Captures, a.Pool, a.Alerts, ingest.WithObservers(alertObservers...)),
		Heartbeat:      heartbeat.NewSynchronizer(a.State, heartbeatObservers...),
		Fleet:          a.Fleet,
		Events:         a.Hub,
		Stream:         http.HandlerFunc(a.Hub.ServeWS),
		Stats:          func() interface{} { return a.Stats() },
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
	})

	return a, nil
}

// Start launches the background workers.
func (a *App) Start() {
	a.startedAt = time.Now()
	a.Pool.Start()
	a.Timers.Start()

	ctx, cancel := context.WithCancel(context.Background())
	a.stopHub = cancel
	a.hubDone = make(chan struct{})
	go func() {
		defer close(a.hubDone)
		a.Hub.Run(ctx)
	}()
}

// Handler returns the HTTP handler of the service.
func (a *App) Handler() http.Handler {
	return a.server.Routes()
}

// Stats gathers component statistics.
func (a *App) Stats() Stats {
	return Stats{
		Uptime:        time.Since(a.startedAt).Round(time.Second).String(),
		Analysis:      a.Pool.Stats(),
		Fleet:         a.Fleet.Stats(),
		Watchdog:      a.Timers.Stats(),
		StreamClients: a.Hub.ClientCount(),
		Alerts:        a.Alerts.Len(),
		AlertCapacity: a.Alerts.Cap(),
		HotspotStates: len(a.Hotspots.GetAllStates()),
	}
}

// Close stops the workers and releases external connections.
func (a *App) Close() error {
	if a.stopHub != nil {
		a.stopHub()
		<-a.hubDone
	}
	a.Timers.Stop()
	a.Pool.Stop()

	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

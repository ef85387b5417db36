// README: Wires config, dispatch service, notification sinks and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rideshare/internal/config"
	httptransport "rideshare/internal/http"
	"rideshare/internal/http/middleware"
	"rideshare/internal/infra"
	"rideshare/internal/logger"
	"rideshare/internal/modules/dispatch"
	"rideshare/internal/modules/fleet"
	"rideshare/internal/modules/ledger"
	"rideshare/internal/modules/matching"
	"rideshare/internal/modules/notify"
	"rideshare/internal/modules/pricing"
)

// Service owns the dispatch core and the external clients backing its sinks.
type Service struct {
	Dispatch *dispatch.Service
	Handler  *gin.Engine

	cfg     *config.Config
	log     logger.Logger
	closers []func() error
}

// NewDispatchService builds a dispatch service from the dispatch section of cfg.
func NewDispatchService(cfg *config.Config, log logger.Logger) (*dispatch.Service, error) {
	policy, err := matching.ByName(cfg.Dispatch.MatchingPolicy)
	if err != nil {
		return nil, err
	}
	fare, err := pricing.FromConfig(cfg.Dispatch.Fare)
	if err != nil {
		return nil, err
	}
	return dispatch.NewService(fleet.NewRegistry(),
		dispatch.WithMatchingPolicy(policy),
		dispatch.WithFareCalculator(fare),
		dispatch.WithLogger(log),
		dispatch.WithFanout(notify.NewFanout(logger.New("notify"))),
	), nil
}

// New connects every enabled backend. A backend that fails to connect aborts startup.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logg := logger.New("service")
	svc, err := NewDispatchService(cfg, logger.New("dispatch"))
	if err != nil {
		return nil, err
	}
	s := &Service{Dispatch: svc, cfg: cfg, log: logg}

	if err := svc.RegisterSink("log", notify.NewLogSink(logger.New("events"))); err != nil {
		return nil, err
	}
	var metrics http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		sink, err := notify.NewPromSink(reg)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		if err := svc.RegisterSink("metrics", sink); err != nil {
			return nil, err
		}
		metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	if err := s.connectSinks(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	var extra []gin.HandlerFunc
	if cfg.CORSEnabled() {
		extra = append(extra, middleware.CORS(cfg.HTTP.CORSOrigins))
	}
	s.Handler = httptransport.NewRouter(svc, logger.New("http"), metrics, extra...)
	return s, nil
}

func (s *Service) connectSinks(ctx context.Context) error {
	cfg := s.cfg
	if cfg.RedisEnabled() {
		client, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, client.Close)
		if err := s.Dispatch.RegisterSink("redis", notify.NewRedisSink(client, cfg.Redis.Channel)); err != nil {
			return err
		}
		s.log.Infof("publishing ride events to redis channel %s", cfg.Redis.Channel)
	}
	if cfg.LedgerEnabled() {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
		store := ledger.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := s.Dispatch.RegisterSink("ledger", ledger.NewSink(store)); err != nil {
			return err
		}
		s.log.Infof("recording receipts in postgres")
	}
	if cfg.PushEnabled() {
		client, err := infra.NewMessaging(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return err
		}
		if err := s.Dispatch.RegisterSink("push", notify.NewPushSink(client)); err != nil {
			return err
		}
		s.log.Infof("sending push notifications for project %s", cfg.Firebase.ProjectID)
	}
	if cfg.MQTTEnabled() {
		client, err := infra.NewMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() error { client.Disconnect(250); return nil })
		if err := s.Dispatch.RegisterSink("mqtt", notify.NewMQTTSink(client, cfg.MQTT.TopicPrefix)); err != nil {
			return err
		}
		s.log.Infof("publishing ride events to mqtt %s", cfg.MQTT.Broker)
	}
	if cfg.InfluxEnabled() {
		client, err := infra.NewInflux(ctx, cfg.Influx.URL, cfg.Influx.Token)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() error { client.Close(); return nil })
		w := client.WriteAPIBlocking(cfg.Influx.Org, cfg.Influx.Bucket)
		if err := s.Dispatch.RegisterSink("influx", notify.NewInfluxSink(w)); err != nil {
			return err
		}
		s.log.Infof("writing ride events to influx bucket %s", cfg.Influx.Bucket)
	}
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.log.Infof("sinks: %v", s.Dispatch.Sinks())
	return httptransport.NewServer(s.cfg.HTTP.Addr, s.Handler, logger.New("http")).Run(ctx)
}

// Close releases external clients in reverse order of creation.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ScanDesk/config"
	"github.com/BearBump/ScanDesk/internal/api/scanapi"
	"github.com/BearBump/ScanDesk/internal/audio"
	brokerkafka "github.com/BearBump/ScanDesk/internal/broker/kafka"
	"github.com/BearBump/ScanDesk/internal/broker/messages"
	"github.com/BearBump/ScanDesk/internal/cache"
	"github.com/BearBump/ScanDesk/internal/cache/rediscache"
	"github.com/BearBump/ScanDesk/internal/capture"
	"github.com/BearBump/ScanDesk/internal/dispatcher"
	"github.com/BearBump/ScanDesk/internal/history"
	"github.com/BearBump/ScanDesk/internal/integrations/orderlookup"
	"github.com/BearBump/ScanDesk/internal/integrations/orderlookup/fake"
	"github.com/BearBump/ScanDesk/internal/integrations/orderlookup/riskhttp"
	"github.com/BearBump/ScanDesk/internal/models"
	"github.com/BearBump/ScanDesk/internal/router"
	"github.com/BearBump/ScanDesk/internal/services/trainingstats"
	"github.com/BearBump/ScanDesk/internal/toast"
	"github.com/BearBump/ScanDesk/internal/tokenizer"
)

type scanDeskFactories struct {
	newLookup      func(cfg *config.Config) orderlookup.Client
	newProducer    func(cfg *config.Config) router.Producer
	newConsumer    func(cfg *config.Config) scanConsumer
	newCache       func(cfg *config.Config) cache.BytesCache
	newRateLimiter func(cfg *config.Config) dispatcher.RateLimiter
	newPlayer      func(cfg *config.Config) audio.Player
}

type scanConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
	Close() error
}

func defaultFactories() scanDeskFactories {
	return scanDeskFactories{
		newLookup: func(cfg *config.Config) orderlookup.Client {
			// Без настроенного lookup-сервиса работаем на локальной заглушке.
			if cfg.Lookup.Mode == "http" && cfg.Lookup.BaseURL != "" {
				timeout := time.Duration(cfg.Lookup.TimeoutSeconds) * time.Second
				return riskhttp.New(cfg.Lookup.BaseURL, cfg.Lookup.APIKey, timeout)
			}
			return fake.New()
		},
		newProducer: func(cfg *config.Config) router.Producer {
			if cfg.Kafka.Host == "" {
				return nil
			}
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return brokerkafka.NewProducer(brokers)
		},
		newConsumer: func(cfg *config.Config) scanConsumer {
			if cfg.Kafka.Host == "" || cfg.Kafka.ScanRequestedTopicName == "" {
				return nil
			}
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			group := cfg.ScanDesk.KafkaConsumerGroup
			if group == "" {
				group = "scan-desk"
			}
			return brokerkafka.NewConsumer(brokers, cfg.Kafka.ScanRequestedTopicName, group)
		},
		newCache: func(cfg *config.Config) cache.BytesCache {
			if cfg.Redis.Host == "" {
				return nil
			}
			return rediscache.New(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)).WithPrefix("scandesk")
		},
		newRateLimiter: func(cfg *config.Config) dispatcher.RateLimiter {
			if cfg.Redis.Host == "" {
				return nil
			}
			return rediscache.NewRateLimiter(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)).WithPrefix("scandesk")
		},
		newPlayer: func(cfg *config.Config) audio.Player {
			return audio.NewCmdPlayer(cfg.ScanDesk.AudioPlayerCommand)
		},
	}
}

func RunScanDesk(ctx context.Context, cfg *config.Config, f scanDeskFactories, onListen func(httpAddr string)) error {
	httpAddr := cfg.ScanDesk.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8081"
	}

	tokCfg := tokenizer.Config{
		MaxKeyGap:  time.Duration(cfg.ScanDesk.TokenizerMaxKeyGapMillis) * time.Millisecond,
		MinLength:  cfg.ScanDesk.TokenizerMinLength,
		FlushAfter: time.Duration(cfg.ScanDesk.TokenizerFlushAfterMillis) * time.Millisecond,
	}
	toastDisplay := time.Duration(cfg.ScanDesk.ToastDisplayMillis) * time.Millisecond
	trainingTTL := time.Duration(cfg.ScanDesk.TrainingStatsTTLSeconds) * time.Second
	if trainingTTL <= 0 {
		trainingTTL = 30 * time.Second
	}

	lookup := f.newLookup(cfg)
	toasts := toast.New(toastDisplay)
	hist := history.New(cfg.ScanDesk.HistoryCapacity)
	cues := audio.NewCues(f.newPlayer(cfg))

	resolutions := make(chan models.Resolution, 64)
	disp := dispatcher.New(lookup, toasts, resolutions).
		WithSettings(cfg.ScanDesk.DispatcherMaxInFlight, int64(cfg.ScanDesk.DispatcherRateLimitPerMinute)).
		WithRateLimiter(f.newRateLimiter(cfg))

	rt := router.New(resolutions, toasts, hist, cues)
	if p := f.newProducer(cfg); p != nil {
		topic := cfg.Kafka.ScanResolvedTopicName
		if topic == "" {
			topic = "scan.resolved"
		}
		rt = rt.WithProducer(p, topic)
	}

	tok := tokenizer.New(tokCfg, func(token string) { disp.Submit(ctx, token) })
	capt := capture.New(tok)
	capt.Attach()
	defer capt.Detach()

	training := trainingstats.New(lookup, f.newCache(cfg), trainingTTL)
	api := scanapi.New(capt, disp, toasts, hist, training)

	routerErr := make(chan error, 1)
	go func() { routerErr <- rt.Run(ctx) }()

	if consumer := f.newConsumer(cfg); consumer != nil {
		defer func() { _ = consumer.Close() }()
		go func() {
			slog.Info("scan.requested consumer started", "topic", cfg.Kafka.ScanRequestedTopicName)
			_ = consumer.Consume(ctx, func(_, value []byte) error {
				var m messages.ScanRequested
				if err := json.Unmarshal(value, &m); err != nil {
					// Битое сообщение коммитим, иначе застрянем на нём навсегда.
					slog.Error("bad scan.requested payload", "error", err.Error())
					return nil
				}
				disp.Submit(ctx, m.TrackingNumber)
				return nil
			})
		}()
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runHTTPServer(ctx, httpOpts{
			httpAddr:    httpAddr,
			swaggerPath: swaggerPathFromEnv(),
			onListen:    onListen,
		}, api)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-routerErr:
		return err
	case err := <-httpErr:
		return err
	}
}

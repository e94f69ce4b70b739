package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"betbot/config"
	"betbot/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the bot
type MetricsProvider struct {
	config        *config.Config
	reader        sdkmetric.Reader
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	updatesCounter      metric.Int64Counter
	wagersLiveGauge     metric.Int64UpDownCounter
	wagersFinished      metric.Int64Counter
	wagerStakeCounter   metric.Int64Counter
	wagerTaxCounter     metric.Int64Counter
	depositsCounter     metric.Int64Counter
	balanceTransactions metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// NewMetricsProviderWithReader uses reader instead of a configured exporter
func NewMetricsProviderWithReader(cfg *config.Config, reader sdkmetric.Reader) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
		reader: reader,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
			attribute.String("platform", mp.config.Platform),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	reader := mp.reader
	if reader == nil {
		var exporter sdkmetric.Exporter
		switch mp.config.OTelExporterType {
		case "console":
			exporter, err = stdoutmetric.New()
			if err != nil {
				return fmt.Errorf("failed to create console exporter: %w", err)
			}
			log.Info("Using console metric exporter")

		case "otlp":
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			exporter, err = otlpmetricgrpc.New(ctx,
				otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
				otlpmetricgrpc.WithInsecure(),
			)
			if err != nil {
				return fmt.Errorf("failed to create OTLP exporter: %w", err)
			}
			log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

		case "none":
			log.Info("Metrics export disabled (exporter_type='none')")
			mp.initialized = true
			return nil

		default:
			return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
		}

		reader = sdkmetric.NewPeriodicReader(
			exporter,
			sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
		)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("betbot")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.updatesCounter, err = mp.meter.Int64Counter(
		UpdatesHandledTotal,
		metric.WithDescription("Total number of chat updates handled"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create updates counter: %w", err)
	}

	// UpDownCounter for gauge-like behavior
	mp.wagersLiveGauge, err = mp.meter.Int64UpDownCounter(
		WagersLive,
		metric.WithDescription("Current number of pending wagers"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create live wagers gauge: %w", err)
	}

	mp.wagersFinished, err = mp.meter.Int64Counter(
		WagersFinishedTotal,
		metric.WithDescription("Total number of wagers that reached a terminal state"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create finished wagers counter: %w", err)
	}

	mp.wagerStakeCounter, err = mp.meter.Int64Counter(
		WagerStakeTotal,
		metric.WithDescription("Credits staked in settled wagers"),
		metric.WithUnit("{credit}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create stake counter: %w", err)
	}

	mp.wagerTaxCounter, err = mp.meter.Int64Counter(
		WagerTaxTotal,
		metric.WithDescription("Tax withheld from settled wagers"),
		metric.WithUnit("{credit}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create tax counter: %w", err)
	}

	mp.depositsCounter, err = mp.meter.Int64Counter(
		DepositsTotal,
		metric.WithDescription("Deposits by review status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create deposits counter: %w", err)
	}

	mp.balanceTransactions, err = mp.meter.Int64Counter(
		BalanceTransactionsTotal,
		metric.WithDescription("Total number of balance transactions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create balance transactions counter: %w", err)
	}

	return nil
}

// Attach feeds the instruments from bus events
func (mp *MetricsProvider) Attach(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.BalanceChangeEvent); ok {
			mp.RecordBalanceTransaction(string(e.TransactionType))
		}
	})
	bus.Subscribe(events.EventTypeWagerProposed, func(ctx context.Context, event events.Event) {
		mp.updateLiveWagers(1)
	})
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		mp.updateLiveWagers(-1)
		switch e := event.(type) {
		case events.WagerSettledEvent:
			mp.recordWagerFinished(string(e.Settlement.Wager.State), e.Settlement.Pot, e.Settlement.Tax)
		case events.WagerCanceledEvent:
			mp.recordWagerFinished(string(e.Wager.State), 0, 0)
		case events.WagerExpiredEvent:
			mp.recordWagerFinished(string(e.Wager.State), 0, 0)
		}
	}, events.EventTypeWagerSettled, events.EventTypeWagerCanceled, events.EventTypeWagerExpired)
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		switch e := event.(type) {
		case events.DepositSubmittedEvent:
			mp.recordDeposit(string(e.Deposit.Status))
		case events.DepositResolvedEvent:
			mp.recordDeposit(string(e.Deposit.Status))
		}
	}, events.EventTypeDepositSubmitted, events.EventTypeDepositResolved)
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordUpdate records a chat update and how routing ended
func (mp *MetricsProvider) RecordUpdate(updateType, result string) {
	if !mp.isEnabled() {
		return
	}

	mp.updatesCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelType, updateType),
			attribute.String(LabelResult, result),
		),
	)
}

// RecordBalanceTransaction records a balance transaction
func (mp *MetricsProvider) RecordBalanceTransaction(transactionType string) {
	if !mp.isEnabled() {
		return
	}

	mp.balanceTransactions.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelType, transactionType),
		),
	)
}

func (mp *MetricsProvider) updateLiveWagers(delta int64) {
	if !mp.isEnabled() {
		return
	}
	mp.wagersLiveGauge.Add(context.Background(), delta)
}

func (mp *MetricsProvider) recordWagerFinished(outcome string, pot, tax int64) {
	if !mp.isEnabled() {
		return
	}

	ctx := context.Background()
	mp.wagersFinished.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelOutcome, outcome)))
	if pot > 0 {
		mp.wagerStakeCounter.Add(ctx, pot)
	}
	if tax > 0 {
		mp.wagerTaxCounter.Add(ctx, tax)
	}
}

func (mp *MetricsProvider) recordDeposit(status string) {
	if !mp.isEnabled() {
		return
	}
	mp.depositsCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String(LabelStatus, status)))
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}

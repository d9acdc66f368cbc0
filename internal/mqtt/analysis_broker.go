package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	commonmqtt "github.com/KeviinASD/audi-back/internal/common/mqtt"
	"github.com/KeviinASD/audi-back/internal/domain"
	"github.com/KeviinASD/audi-back/internal/service"
)

// analysisTimeout upper bound for one broker-triggered analysis.
const analysisTimeout = 3 * time.Minute

// Client the part of the MQTT client the broker needs.
type Client interface {
	Subscribe(topic string, qos byte, handler commonmqtt.MessageHandler) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Unsubscribe(topics ...string) error
}

// AnalysisMQTTBroker runs AI analyses requested over MQTT and publishes a
// short outcome to {topic}/results.
type AnalysisMQTTBroker struct {
	analysis service.AIAnalysisService
	client   Client
	topic    string
	qos      byte
	logger   *zap.Logger

	inflight sync.WaitGroup
}

func NewAnalysisMQTTBroker(
	analysis service.AIAnalysisService,
	client Client,
	topic string,
	qos byte,
	logger *zap.Logger,
) *AnalysisMQTTBroker {
	return &AnalysisMQTTBroker{
		analysis: analysis,
		client:   client,
		topic:    topic,
		qos:      qos,
		logger:   logger,
	}
}

// AnalysisOutcome payload published on the results topic.
type AnalysisOutcome struct {
	ReportID     string `json:"reportId,omitempty"`
	EquipmentID  *int64 `json:"equipmentId,omitempty"`
	LaboratoryID *int64 `json:"laboratoryId,omitempty"`
	Date         string `json:"date"`
	Findings     int    `json:"criticalFindings"`
	Error        string `json:"error,omitempty"`
}

func (b *AnalysisMQTTBroker) ResultsTopic() string {
	return b.topic + "/results"
}

func (b *AnalysisMQTTBroker) Start() error {
	if err := b.client.Subscribe(b.topic, b.qos, b.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.topic, err)
	}
	b.logger.Info("Analysis MQTT broker subscribed", zap.String("topic", b.topic))
	return nil
}

// Stop unsubscribes and waits for in-flight analyses.
func (b *AnalysisMQTTBroker) Stop() {
	if err := b.client.Unsubscribe(b.topic); err != nil {
		b.logger.Warn("Failed to unsubscribe analysis topic", zap.String("topic", b.topic), zap.Error(err))
	}
	b.Wait()
}

// Wait blocks until every dispatched analysis has published its outcome.
func (b *AnalysisMQTTBroker) Wait() {
	b.inflight.Wait()
}

// HandleMessage payload {equipmentId?, laboratoryId?, date, autoCreateFindings, provider?}.
// Malformed payloads are dropped. The analysis runs on its own goroutine: the
// paho callback must return before any Publish can be acknowledged.
// Analysis failures are reported on the results topic.
func (b *AnalysisMQTTBroker) HandleMessage(topic string, payload []byte) error {
	var req service.AnalyzeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		b.logger.Warn("Dropping malformed analysis request",
			zap.String("topic", topic),
			zap.Int("payload_size", len(payload)),
			zap.Error(err),
		)
		return nil
	}

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		if err := b.process(topic, req); err != nil {
			b.logger.Error("Failed to report analysis outcome", zap.String("topic", topic), zap.Error(err))
		}
	}()
	return nil
}

func (b *AnalysisMQTTBroker) process(topic string, req service.AnalyzeRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	outcome := AnalysisOutcome{EquipmentID: req.EquipmentID, LaboratoryID: req.LaboratoryID, Date: req.Date}
	report, err := b.analysis.Analyze(ctx, req)
	if err != nil {
		b.logger.Error("MQTT-triggered analysis failed", zap.String("topic", topic), zap.Error(err))
		outcome.Error = err.Error()
	} else {
		outcome.ReportID = report.ID
		outcome.Date = domain.FormatDate(report.AuditDate)
		outcome.Findings = len(report.Analysis.CriticalFindings)
	}
	return b.publish(outcome)
}

func (b *AnalysisMQTTBroker) publish(outcome AnalysisOutcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis outcome: %w", err)
	}
	if err := b.client.Publish(b.ResultsTopic(), b.qos, false, data); err != nil {
		return fmt.Errorf("failed to publish analysis outcome: %w", err)
	}
	return nil
}

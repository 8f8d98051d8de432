package intake

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shiftcast",
		Subsystem: "intake",
		Name:      "records_processed_total",
		Help:      "Number of Kafka records successfully handled.",
	}, []string{"topic", "event_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shiftcast",
		Subsystem: "intake",
		Name:      "handler_errors_total",
		Help:      "Number of handler errors grouped by topic and event type.",
	}, []string{"topic", "event_type"})

	malformedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shiftcast",
		Subsystem: "intake",
		Name:      "malformed_records_total",
		Help:      "Number of records committed without processing per topic.",
	}, []string{"topic"})

	rowSkippedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shiftcast",
		Subsystem: "intake",
		Name:      "forecast_rows_skipped_total",
		Help:      "Number of individual forecast rows dropped from otherwise valid runs.",
	})

	lastRecordGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "shiftcast",
		Subsystem: "intake",
		Name:      "last_record_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successfully processed record per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, malformedCounter, rowSkippedCounter, lastRecordGauge)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		lastRecordGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordMalformed(topic string) {
	malformedCounter.WithLabelValues(topic).Inc()
}

func recordRowSkipped() {
	rowSkippedCounter.Inc()
}

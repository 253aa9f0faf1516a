package observability

import (
	"log/slog"
	"strconv"
	"strings"

	"corelend/core/types"
	"corelend/native/lending"
)

// EventRecorder consumes the engine's structured events, logging each one and
// feeding the metrics registry. It implements lending.EventSink.
type EventRecorder struct {
	logger  *slog.Logger
	metrics *LendingMetrics
}

// NewEventRecorder wires a recorder to the given logger. A nil logger falls
// back to the process default.
func NewEventRecorder(logger *slog.Logger) *EventRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventRecorder{logger: logger, metrics: Lending()}
}

var _ lending.EventSink = (*EventRecorder)(nil)

// Emit records the event. Operation events count toward throughput; reserve
// updates, liquidations and deficits feed their dedicated series.
func (r *EventRecorder) Emit(ev *types.Event) {
	if r == nil || ev == nil {
		return
	}

	attrs := make([]any, 0, len(ev.Attributes)*2)
	for key, value := range ev.Attributes {
		attrs = append(attrs, slog.String(key, value))
	}
	r.logger.Info(ev.Type, attrs...)

	switch ev.Type {
	case lending.EventTypeReserveDataUpdated:
		r.metrics.RecordReserveUpdate()
	case lending.EventTypeLiquidation:
		r.metrics.RecordLiquidation()
	case lending.EventTypeDeficitCreated, lending.EventTypeDeficitEliminated:
		r.metrics.RecordOperation(shortType(ev.Type))
		asset, okAsset := ev.Attributes["asset"]
		amount, okAmount := ev.Attributes["amount"]
		if okAsset && okAmount {
			if v, err := strconv.ParseFloat(amount, 64); err == nil {
				if ev.Type == lending.EventTypeDeficitCreated {
					r.metrics.deficit.WithLabelValues(asset).Add(v)
				} else {
					r.metrics.deficit.WithLabelValues(asset).Sub(v)
				}
			}
		}
	default:
		r.metrics.RecordOperation(shortType(ev.Type))
	}
}

// shortType strips the module prefix from an event type: "lending.supply"
// labels as "supply".
func shortType(eventType string) string {
	if i := strings.IndexByte(eventType, '.'); i >= 0 {
		return eventType[i+1:]
	}
	return eventType
}

package service

import (
	"github.com/okian/takraw/internal/domain/model"
	"github.com/okian/takraw/internal/domain/rally"
	"github.com/okian/takraw/internal/domain/undo"
	"github.com/okian/takraw/pkg/metrics"
)

// metricsObserver forwards engine notifications to Prometheus.
type metricsObserver struct{}

func (metricsObserver) PlayRecorded(pt rally.PlayType, success bool) {
	metrics.RecordPlay(string(pt), success)
}

func (metricsObserver) PointAwarded(side model.Side) { metrics.RecordPoint(string(side)) }

func (metricsObserver) SetFinished(winner model.Side) { metrics.RecordSetFinished(string(winner)) }

func (metricsObserver) Undone(tier undo.Tier) { metrics.RecordUndo(tier.String()) }

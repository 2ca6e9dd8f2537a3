package session

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/hellogeo/geoanchor/internal/session"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	placed          metric.Int64Counter
	evicted         metric.Int64Counter
	failures        metric.Int64Counter
	nearestDistance metric.Float64Histogram
}

func newInstruments() (*instruments, error) {
	m := meter()
	ins := &instruments{}

	var err error
	ins.placed, err = m.Int64Counter(
		"session.anchors.placed",
		metric.WithDescription("Anchors appended to the set"),
	)
	if err != nil {
		return nil, err
	}

	ins.evicted, err = m.Int64Counter(
		"session.anchors.evicted",
		metric.WithDescription("Anchors evicted to make room"),
	)
	if err != nil {
		return nil, err
	}

	ins.failures, err = m.Int64Counter(
		"session.collaborator.failures",
		metric.WithDescription("Failed render, storage or marker calls"),
	)
	if err != nil {
		return nil, err
	}

	ins.nearestDistance, err = m.Float64Histogram(
		"session.nearest.distance",
		metric.WithDescription("Distance from the camera to the nearest anchor"),
		metric.WithUnit("m"),
	)
	if err != nil {
		return nil, err
	}

	return ins, nil
}

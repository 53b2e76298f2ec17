package broker

import (
	"context"
	"time"
)

// Recorder receives broker level measurements.
type Recorder interface {
	RecordConnectionAttempt(ctx context.Context, success bool)
	RecordReconnect(ctx context.Context)
	RecordValidation(ctx context.Context, healthy bool)
	RecordBatchCycle(ctx context.Context, expected, delivered int, duration time.Duration, err error)
	RecordMessageConsumed(ctx context.Context, queue string, success bool)
	RecordMessageSent(ctx context.Context, queue string, success bool, duration time.Duration)
}

// NopRecorder returns a recorder that drops every measurement.
func NopRecorder() Recorder {
	return nopRecorder{}
}

type nopRecorder struct{}

func (nopRecorder) RecordConnectionAttempt(context.Context, bool) {}
func (nopRecorder) RecordReconnect(context.Context) {}
func (nopRecorder) RecordValidation(context.Context, bool) {}
func (nopRecorder) RecordBatchCycle(context.Context, int, int, time.Duration, error) {}
func (nopRecorder) RecordMessageConsumed(context.Context, string, bool) {}
func (nopRecorder) RecordMessageSent(context.Context, string, bool, time.Duration) {}

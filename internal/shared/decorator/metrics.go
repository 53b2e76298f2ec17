package decorator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type (
	MetricsClient interface {
		Inc(key string, value int)
	}

	commandMetricsDecorator[C any, R any] struct {
		base   CommandHandler[C, R]
		client MetricsClient
	}

	queryMetricsDecorator[Q any, R any] struct {
		base   QueryHandler[Q, R]
		client MetricsClient
	}
)

func (d commandMetricsDecorator[C, R]) Handle(ctx context.Context, cmd C) (result R, err error) {
	start := time.Now()
	actionName := strings.ToLower(generateActionName(cmd))

	defer func() {
		end := time.Since(start)

		d.client.Inc(fmt.Sprintf("commands.%s.duration_ms", actionName), int(end.Milliseconds()))

		if err == nil {
			d.client.Inc(fmt.Sprintf("commands.%s.success", actionName), 1)
		} else {
			d.client.Inc(fmt.Sprintf("commands.%s.failure", actionName), 1)
		}
	}()

	return d.base.Handle(ctx, cmd)
}

func (d queryMetricsDecorator[Q, R]) Execute(ctx context.Context, q Q) (result R, err error) {
	start := time.Now()
	actionName := strings.ToLower(generateActionName(q))

	defer func() {
		end := time.Since(start)

		d.client.Inc(fmt.Sprintf("queries.%s.duration_ms", actionName), int(end.Milliseconds()))

		if err == nil {
			d.client.Inc(fmt.Sprintf("queries.%s.success", actionName), 1)
		} else {
			d.client.Inc(fmt.Sprintf("queries.%s.failure", actionName), 1)
		}
	}()

	return d.base.Execute(ctx, q)
}

package runtime

import (
	"os"
	"time"
)

type (
	ServiceOption func(*ServiceCtx)

	ConsumerOption func(*ConsumerCtx)
)

func WithServiceTermination(ch chan os.Signal) ServiceOption {
	return func(ctx *ServiceCtx) {
		ctx.shutdownChannel = ch
	}
}

func WithWaitingForServer() ServiceOption {
	return func(ctx *ServiceCtx) {
		ctx.serverReady = make(chan struct{})
	}
}

func WithConsumerTermination(ch chan os.Signal) ConsumerOption {
	return func(ctx *ConsumerCtx) {
		ctx.shutdownChannel = ch
	}
}

// WithPropertiesFile overlays the broker settings from a properties file.
func WithPropertiesFile(path string) ConsumerOption {
	return func(ctx *ConsumerCtx) {
		ctx.propertiesFile = path
	}
}

// WithWorkers overrides the configured number of pull consumers.
func WithWorkers(n int) ConsumerOption {
	return func(ctx *ConsumerCtx) {
		ctx.workers = n
	}
}

func WithReceiveTimeout(timeout time.Duration) ConsumerOption {
	return func(ctx *ConsumerCtx) {
		ctx.receiveTimeout = timeout
	}
}

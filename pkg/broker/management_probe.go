package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ManagementConfig points at the RabbitMQ management HTTP API.
type ManagementConfig struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
	Retries  int
}

// ManagementProbe reads queue depth from the management API, leaving the AMQP session untouched.
type ManagementProbe struct {
	client *resty.Client
	vhost  string
	queue  string
}

type queueInfo struct {
	Name          string `json:"name"`
	Messages      int    `json:"messages"`
	MessagesReady int    `json:"messages_ready"`
}

// NewManagementProbe creates a probe for queue in vhost.
func NewManagementProbe(cfg ManagementConfig, vhost string, queue QueueRef) *ManagementProbe {
	if vhost == "" {
		vhost = "/"
	}

	client := resty.New().
		SetBaseURL(cfg.URL).
		SetBasicAuth(cfg.Username, cfg.Password).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.Retries)

	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &ManagementProbe{
		client: client,
		vhost:  vhost,
		queue:  queue.Name,
	}
}

// Depth returns the number of ready messages.
func (p *ManagementProbe) Depth(ctx context.Context) (int, error) {
	var info queueInfo

	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"vhost": p.vhost,
			"queue": p.queue,
		}).
		SetResult(&info).
		Get("/api/queues/{vhost}/{queue}")
	if err != nil {
		return 0, fmt.Errorf("query management api for %s: %w", p.queue, err)
	}

	if resp.IsError() {
		return 0, fmt.Errorf("query management api for %s: unexpected status %d", p.queue, resp.StatusCode())
	}

	return info.MessagesReady, nil
}

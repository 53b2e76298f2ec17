package service

import (
	"context"

	"github.com/architeacher/svc-broker-link/internal/domain"
	"github.com/architeacher/svc-broker-link/pkg/broker"
	"github.com/stretchr/testify/mock"
)

type (
	MockMessageSender struct {
		mock.Mock
	}

	MockHealthChecker struct {
		mock.Mock
	}
)

func (m *MockMessageSender) Send(ctx context.Context, payload string) (broker.SendReceipt, error) {
	args := m.Called(ctx, payload)

	return args.Get(0).(broker.SendReceipt), args.Error(1)
}

func (m *MockHealthChecker) CheckHealth(ctx context.Context) *domain.HealthResult {
	return m.Called(ctx).Get(0).(*domain.HealthResult)
}

// Package broker links a process to a RabbitMQ queue through one shared,
// self-healing connection.
//
// # Overview
//
// A Guard owns the only long-lived connection and session (an AMQP channel)
// of the process. It builds them lazily, hands the session to every consumer
// and probe, and periodically validates the pair, rebuilding it when the
// broker went away. A Scheduler runs that validation, and any other periodic
// work, serially on one worker goroutine.
//
// On top of the guard:
//
//   - ConsumerFactory subscribes consumers to a queue, either pulled through
//     Consumer.Receive or pushed to a Listener.
//   - BatchCoordinator drains, on each tick, exactly the messages a queue holds
//     when the tick starts, then releases its consumer.
//   - Sender publishes text messages on a short-lived connection of its own,
//     behind a circuit breaker.
//
// # Basic Usage
//
//	factory := broker.NewAMQPConnectionFactory(func() broker.Endpoint {
//		return broker.Endpoint{Host: "localhost", Port: 5672, Username: "guest", Password: "guest"}
//	})
//
//	queue := broker.QueueRef{Name: "data", Durable: true}
//	guard := broker.NewGuard(factory, queue, broker.WithValidationInterval(time.Minute))
//	if err := guard.Start(ctx); err != nil {
//		log.Printf("broker not reachable yet: %v", err)
//	}
//	defer guard.Cleanup()
//
//	coordinator := broker.NewBatchCoordinator(
//		broker.NewConsumerFactory(guard, queue),
//		broker.NewSessionProbe(guard, queue),
//		func(ctx context.Context, msg broker.Message) error {
//			log.Printf("received %s", msg.Text())
//			return nil
//		},
//	)
//	_ = coordinator.Schedule(guard.Scheduler(), 5*time.Minute)
//
// # Acknowledgement
//
// Pulled deliveries are acknowledged by the broker on receipt. Pushed
// deliveries are acknowledged after the listener returns nil; on error they
// are negatively acknowledged and requeued unless already redelivered once.
//
// # Logging Integration
//
// The package logs through the small Logger interface. NewZerologAdapter
// wraps a zerolog.Logger; NopLogger discards output.
package broker

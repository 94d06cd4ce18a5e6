package kafkax

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// ReadyCheck dials the first reachable broker. It returns nil when no brokers are
// configured so in-memory deployments stay ready.
func ReadyCheck(brokers string) func(context.Context) error {
	list := SplitBrokers(brokers)
	if len(list) == 0 {
		return nil
	}
	return func(ctx context.Context) error {
		dialer := kafka.Dialer{Timeout: 2 * time.Second}
		var errs []error
		for _, broker := range list {
			conn, err := dialer.DialContext(ctx, "tcp", broker)
			if err == nil {
				_ = conn.Close()
				return nil
			}
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}
}

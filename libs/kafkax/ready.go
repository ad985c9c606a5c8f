package kafkax

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// ReadyCheck dials the first broker to verify the cluster is reachable.
func ReadyCheck(brokers []string) func(context.Context) error {
	return func(ctx context.Context) error {
		if len(brokers) == 0 {
			return nil
		}
		conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

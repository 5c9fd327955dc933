package producers

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// TopicSpec describes a topic the producers create on startup
type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
}

// withDefaults fills unset sizes for a single-broker development cluster
func (s TopicSpec) withDefaults() TopicSpec {
	if s.NumPartitions <= 0 {
		s.NumPartitions = 1
	}
	if s.ReplicationFactor <= 0 {
		s.ReplicationFactor = 1
	}
	return s
}

// ensureTopic creates the topic through the cluster controller. An existing
// topic is not an error, so every process may call it on startup.
func ensureTopic(brokers string, spec TopicSpec, log *slog.Logger) error {
	spec = spec.withDefaults()

	conn, err := kafka.Dial("tcp", brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to find kafka controller: %w", err)
	}

	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.NumPartitions,
		ReplicationFactor: spec.ReplicationFactor,
	})
	switch {
	case errors.Is(err, kafka.TopicAlreadyExists):
		log.Debug("Kafka topic already exists", "topic", spec.Name)
	case err != nil:
		return fmt.Errorf("failed to create kafka topic %s: %w", spec.Name, err)
	default:
		log.Info("Kafka topic ready", "topic", spec.Name, "partitions", spec.NumPartitions)
	}
	return nil
}

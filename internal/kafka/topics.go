package kafka

import (
	"errors"
	"fmt"
	"time"

	"clubster-booking/internal/logger"

	"github.com/segmentio/kafka-go"
)

// EnsureTopicsExist creates the booking topics if they don't already exist
func EnsureTopicsExist(brokers []string, topics []string, l *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	// Connect to the first broker to create topics
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	// Create each topic
	for _, topic := range topics {
		topicConfigs := []kafka.TopicConfig{
			{
				Topic:             topic,
				NumPartitions:     1,
				ReplicationFactor: 1,
			},
		}

		err = controllerConn.CreateTopics(topicConfigs...)
		if err != nil {
			// An existing topic is fine
			if errors.Is(err, kafka.TopicAlreadyExists) {
				l.LogKafka("TOPIC", topic, "already exists")
				continue
			}
			l.Warn("KAFKA", fmt.Sprintf("Error creating topic %s: %v", topic, err))
			// Continue trying to create other topics even if one fails
		} else {
			l.LogKafka("TOPIC", topic, "created")
		}
	}

	// Wait a moment for topics to be fully created
	time.Sleep(1 * time.Second)
	return nil
}

package kafka

import (
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// EnsureTopicsExist creates kafka topics if they don't already exist.
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err = controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			log.Printf("Error creating topic %s: %v", topic, err)
		}
	}

	return waitForTopics(controllerConn, topics, 5*time.Second)
}

// waitForTopics polls broker metadata until every topic is visible or the
// deadline passes. Topic creation is asynchronous, so a create followed by
// an immediate produce can otherwise fail with an unknown topic error.
func waitForTopics(conn *kafka.Conn, topics []string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		partitions, err := conn.ReadPartitions(topics...)
		if err == nil && allTopicsPresent(partitions, topics) {
			return nil
		}
		if time.Now().After(deadline) {
			if err != nil {
				return fmt.Errorf("topics not ready after %s: %w", timeout, err)
			}
			return fmt.Errorf("topics not ready after %s", timeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func allTopicsPresent(partitions []kafka.Partition, topics []string) bool {
	seen := make(map[string]bool, len(partitions))
	for _, p := range partitions {
		seen[p.Topic] = true
	}
	for _, topic := range topics {
		if !seen[topic] {
			return false
		}
	}
	return true
}

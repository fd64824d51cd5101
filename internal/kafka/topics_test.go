package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func partitionsFor(topics ...string) []kafka.Partition {
	out := make([]kafka.Partition, 0, len(topics))
	for _, t := range topics {
		out = append(out, kafka.Partition{Topic: t, ID: 0})
	}
	return out
}

func TestAllTopicsPresent(t *testing.T) {
	topics := []string{"reservation-created", "reservation-cancelled"}

	assert.True(t, allTopicsPresent(partitionsFor("reservation-created", "reservation-cancelled"), topics))
	assert.False(t, allTopicsPresent(partitionsFor("reservation-created"), topics))
	assert.False(t, allTopicsPresent(nil, topics))
}

func TestAllTopicsPresentIgnoresExtraTopics(t *testing.T) {
	partitions := partitionsFor("reservation-created", "reservation-cancelled", "__consumer_offsets")
	assert.True(t, allTopicsPresent(partitions, []string{"reservation-created"}))
}

func TestAllTopicsPresentWithNoWantedTopics(t *testing.T) {
	assert.True(t, allTopicsPresent(nil, nil))
}

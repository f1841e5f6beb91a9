package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerflow/pkg/exception"
)

func TestBatchAddGroupsByPartition(t *testing.T) {
	var b Batch
	b.Add(Message{Topic: "t", Partition: 1, Offset: 10})
	b.Add(Message{Topic: "t", Partition: 0, Offset: 5})
	b.Add(Message{Topic: "t", Partition: 1, Offset: 11})
	b.Add(Message{Topic: "t", Partition: 0, Offset: 6})

	require.Len(t, b.Partitions, 2)
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, 1, b.Partitions[0].Partition)
	assert.Equal(t, []int64{10, 11}, offsets(b.Partitions[0].Messages))
	assert.Equal(t, []int64{5, 6}, offsets(b.Partitions[1].Messages))
}

func TestCommitOfIsNextOffset(t *testing.T) {
	c := CommitOf(Message{Topic: "schedule", Partition: 3, Offset: 41})
	assert.Equal(t, Commit{Topic: "schedule", Partition: 3, Offset: 42}, c)
}

func TestCodecRoundTrip(t *testing.T) {
	type payload struct {
		ID   string `json:"id"`
		Size int    `json:"size"`
	}
	b, err := Encode(payload{ID: "a", Size: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","size":2}`, string(b))

	var p payload
	require.NoError(t, Decode(b, &p))
	assert.Equal(t, "a", p.ID)

	require.Error(t, Decode([]byte("{"), &p))
}

func TestConfigValidate(t *testing.T) {
	assert.ErrorIs(t, ConsumerConfig{Topic: "t", GroupID: "g"}.Validate(), exception.ErrEmptyBrokers)
	assert.ErrorIs(t, ConsumerConfig{Brokers: []string{"b"}, GroupID: "g"}.Validate(), exception.ErrEmptyTopic)
	assert.ErrorIs(t, ConsumerConfig{Brokers: []string{"b"}, Topic: "t"}.Validate(), exception.ErrEmptyGroupID)
	assert.NoError(t, ConsumerConfig{Brokers: []string{"b"}, Topic: "t", GroupID: "g"}.Validate())

	assert.ErrorIs(t, ProducerConfig{Brokers: []string{"b"}}.Validate(), exception.ErrEmptyTopic)
	assert.NoError(t, ProducerConfig{Brokers: []string{"b"}, Topic: "t"}.Validate())
}

func offsets(msgs []Message) []int64 {
	out := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Offset)
	}
	return out
}

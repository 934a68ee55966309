package events

import (
	"bytes"
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a := New(KindPush, "remote-a", "https://a.example")
	b := New(KindPush, "remote-a", "https://a.example")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
	assert.False(t, a.Failed())

	a.Error = "boom"
	assert.True(t, a.Failed())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, New(KindPull, "c", "u")))
	require.NoError(t, r.Publish(ctx, New(KindPush, "c", "u")))

	got := r.Events()
	require.Len(t, got, 2)
	assert.Equal(t, KindPull, got[0].Kind)
	assert.Equal(t, KindPush, got[1].Kind)

	got[0].Kind = "mutated"
	assert.Equal(t, KindPull, r.Events()[0].Kind)

	assert.NoError(t, Nop{}.Publish(ctx, got[0]))
}

func TestPartitionKey(t *testing.T) {
	e := New(KindPush, "conn", "u")
	assert.Equal(t, e.ID, partitionKey(e))

	e.RemoteID = 9
	assert.Equal(t, "conn:remote:9", partitionKey(e))

	e.LocalID = 4
	assert.Equal(t, "conn:4", partitionKey(e))
}

func TestNewKafkaSink_Validation(t *testing.T) {
	_, err := NewKafkaSink(KafkaConfig{Topic: "t"})
	assert.Error(t, err)

	_, err = NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Info})}
	ctx := context.Background()

	ok := New(KindPush, "newsroom", "https://a.example")
	ok.LocalID = 4
	require.NoError(t, sink.Publish(ctx, ok))

	failed := New(KindPull, "newsroom", "https://a.example")
	failed.Error = "remote said no"
	require.NoError(t, sink.Publish(ctx, failed))

	out := buf.String()
	assert.Contains(t, out, "syndicated")
	assert.Contains(t, out, "local_id=4")
	assert.Contains(t, out, "syndication failed")
	assert.Contains(t, out, `error="remote said no"`)
}

package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"diagramsync/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEventBridge struct {
	calls  []*eventbridge.PutEventsInput
	failed int32
	err    error
}

func (f *fakeEventBridge) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	out := &eventbridge.PutEventsOutput{FailedEntryCount: f.failed}
	for range in.Entries {
		entry := types.PutEventsResultEntry{}
		if f.failed > 0 {
			entry.ErrorCode = aws.String("InternalFailure")
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

func TestPublisher_PublishSetsSourceAndDetail(t *testing.T) {
	client := &fakeEventBridge{}
	publisher := NewPublisher(client, "diagrams", zap.NewNop())
	event := events.NewDiagramUpdated("s1", "P1", "alice", "MOVE_NODE", 3, time.Unix(100, 0))

	err := publisher.Publish(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, client.calls, 1)
	entry := client.calls[0].Entries[0]
	assert.Equal(t, Source, aws.ToString(entry.Source))
	assert.Equal(t, "diagrams", aws.ToString(entry.EventBusName))
	assert.Equal(t, events.EventTypeDiagramUpdated, aws.ToString(entry.DetailType))

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "P1", detail["project_id"])
	assert.EqualValues(t, 3, detail["version"])
}

func TestPublisher_BatchesInTens(t *testing.T) {
	client := &fakeEventBridge{}
	publisher := NewPublisher(client, "diagrams", zap.NewNop())
	batch := make([]events.DomainEvent, 0, 23)
	for i := 0; i < 23; i++ {
		batch = append(batch, events.NewDiagramCreated("s1", "P1", "alice", "ADD_NODE", time.Unix(0, 0)))
	}

	require.NoError(t, publisher.PublishBatch(context.Background(), batch))

	require.Len(t, client.calls, 3)
	assert.Len(t, client.calls[2].Entries, 3)
}

func TestPublisher_Failures(t *testing.T) {
	event := events.NewDiagramCreated("s1", "P1", "alice", "ADD_NODE", time.Unix(0, 0))

	err := NewPublisher(&fakeEventBridge{err: errors.New("throttled")}, "b", zap.NewNop()).Publish(context.Background(), event)
	assert.ErrorContains(t, err, "throttled")

	err = NewPublisher(&fakeEventBridge{failed: 1}, "b", zap.NewNop()).Publish(context.Background(), event)
	assert.ErrorContains(t, err, "1 events failed")
}

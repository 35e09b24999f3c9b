package slack

import (
	"context"
	"errors"
	"testing"
	"time"

	"starlord/internal/queue"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testTS = "1482786363.038760"

func testRequest(responseURL string) StarRequest {
	return StarRequest{
		ID:               uuid.New(),
		UserID:           "U123",
		MessageTimestamp: testTS,
		ChannelID:        "C123",
		ResponseURL:      responseURL,
		EnqueuedAt:       time.Now(),
	}
}

func matchHistoryParams(channelID, ts string) interface{} {
	return mock.MatchedBy(func(p *slack.GetConversationHistoryParameters) bool {
		return p.ChannelID == channelID &&
			p.Oldest == ts &&
			p.Latest == ts &&
			p.Inclusive &&
			p.Limit == 1
	})
}

func TestStarWorker_Handle(t *testing.T) {
	starRef := slack.NewRefToMessage("C123", testTS)

	tests := []struct {
		name       string
		history    *slack.GetConversationHistoryResponse
		historyErr error
		expectStar bool
		starErr    error
		want       string
	}{
		{
			name:    "no message found",
			history: historyWith(),
			want:    "Couldn't retrieve that message.",
		},
		{
			name:    "too many messages",
			history: historyWith(standardMessage("a", testTS), standardMessage("b", testTS)),
			want:    "Couldn't retrieve that message.",
		},
		{
			name:       "history call fails",
			historyErr: errors.New("channel_not_found"),
			want:       "Couldn't retrieve that message.",
		},
		{
			name:       "starred",
			history:    historyWith(standardMessage("hello", testTS)),
			expectStar: true,
			want:       `Penned "hello" into the book of stars.... :star:`,
		},
		{
			name:       "already starred",
			history:    historyWith(standardMessage("hello", testTS)),
			expectStar: true,
			starErr:    slack.SlackErrorResponse{Err: "already_starred"},
			want:       `Penned "hello" into the book of stars.... :star:`,
		},
		{
			name:       "already starred as plain error",
			history:    historyWith(standardMessage("hello", testTS)),
			expectStar: true,
			starErr:    errors.New("already_starred"),
			want:       `Penned "hello" into the book of stars.... :star:`,
		},
		{
			name:       "star fails",
			history:    historyWith(standardMessage("hello", testTS)),
			expectStar: true,
			starErr:    slack.SlackErrorResponse{Err: "not_in_channel"},
			want:       `Alack! Could not pen "hello" into the book of stars.... Bother perhaps the foolish sqrl?`,
		},
		{
			name:       "star fails with similar code",
			history:    historyWith(standardMessage("hello", testTS)),
			expectStar: true,
			starErr:    slack.SlackErrorResponse{Err: "already_starred_elsewhere"},
			want:       `Alack! Could not pen "hello" into the book of stars.... Bother perhaps the foolish sqrl?`,
		},
		{
			name: "channel join is not a standard message",
			history: historyWith(slack.Message{Msg: slack.Msg{
				Type: "message", SubType: "channel_join", Text: "<@U1> has joined", Timestamp: testTS,
			}}),
			want: "Unexpected message.",
		},
		{
			name: "bot message is not a standard message",
			history: historyWith(slack.Message{Msg: slack.Msg{
				Type: "message", SubType: "bot_message", Text: "beep", Timestamp: testTS,
			}}),
			want: "Unexpected message.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockStarAPI{}
			api.On("GetConversationHistoryContext", mock.Anything, matchHistoryParams("C123", testTS)).
				Return(tt.history, tt.historyErr).Once()
			if tt.expectStar {
				api.On("AddStarContext", mock.Anything, "C123", starRef).Return(tt.starErr).Once()
			}

			worker := NewStarWorker(api, queue.New[StarRequest](), newRecordingReplier(nil), 0)
			resp := worker.Handle(context.Background(), testRequest("https://hooks.example/1"))

			assert.Equal(t, "ephemeral", resp.ResponseType)
			assert.Equal(t, tt.want, resp.Text)
			api.AssertExpectations(t)
			if !tt.expectStar {
				api.AssertNotCalled(t, "AddStarContext", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestStarWorker_HandleAppliesTimeout(t *testing.T) {
	api := &mockStarAPI{}
	api.On("GetConversationHistoryContext", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return(historyWith(), nil).Once()

	worker := NewStarWorker(api, queue.New[StarRequest](), newRecordingReplier(nil), time.Second)
	resp := worker.Handle(context.Background(), testRequest("https://hooks.example/1"))

	assert.Equal(t, "Couldn't retrieve that message.", resp.Text)
	api.AssertExpectations(t)
}

func waitForReplies(t *testing.T, r *recordingReplier, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.sent:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for reply %d of %d", i+1, n)
		}
	}
}

func TestStarWorker_RunRepliesOncePerRequestInOrder(t *testing.T) {
	api := &mockStarAPI{}
	api.On("GetConversationHistoryContext", mock.Anything, mock.Anything).
		Return(historyWith(standardMessage("hello", testTS)), nil)
	api.On("AddStarContext", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	q := queue.New[StarRequest]()
	replier := newRecordingReplier(nil)
	worker := NewStarWorker(api, q, replier, 0)

	require.NoError(t, q.Enqueue(testRequest("https://hooks.example/first")))
	require.NoError(t, q.Enqueue(testRequest("https://hooks.example/second")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	waitForReplies(t, replier, 2)
	assert.Eventually(t, worker.Running, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	replies := replier.all()
	require.Len(t, replies, 2)
	assert.Equal(t, "https://hooks.example/first", replies[0].responseURL)
	assert.Equal(t, "https://hooks.example/second", replies[1].responseURL)
	for _, r := range replies {
		assert.Equal(t, `Penned "hello" into the book of stars.... :star:`, r.resp.Text)
	}

	assert.False(t, worker.Running())
	assert.ErrorIs(t, q.Enqueue(testRequest("https://hooks.example/late")), queue.ErrClosed)
}

func TestStarWorker_RunSurvivesFailures(t *testing.T) {
	api := &mockStarAPI{}
	api.On("GetConversationHistoryContext", mock.Anything, mock.Anything).
		Return(nil, errors.New("boom")).Once()
	api.On("GetConversationHistoryContext", mock.Anything, mock.Anything).
		Return(historyWith(standardMessage("second", testTS)), nil).Once()
	api.On("AddStarContext", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	q := queue.New[StarRequest]()
	replier := newRecordingReplier(errors.New("response url expired"))
	worker := NewStarWorker(api, q, replier, 0)

	require.NoError(t, q.Enqueue(testRequest("https://hooks.example/1")))
	require.NoError(t, q.Enqueue(testRequest("https://hooks.example/2")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	waitForReplies(t, replier, 2)

	replies := replier.all()
	require.Len(t, replies, 2)
	assert.Equal(t, "Couldn't retrieve that message.", replies[0].resp.Text)
	assert.Equal(t, `Penned "second" into the book of stars.... :star:`, replies[1].resp.Text)
	api.AssertExpectations(t)
}

func TestStarWorker_RunFailsWhenQueueBreaks(t *testing.T) {
	q := queue.New[StarRequest]()
	q.Close()

	worker := NewStarWorker(&mockStarAPI{}, q, newRecordingReplier(nil), 0)
	err := worker.Run(context.Background())

	assert.ErrorIs(t, err, queue.ErrClosed)
	assert.False(t, worker.Running())
}

func TestStarWorker_CancelDropsQueuedRequests(t *testing.T) {
	started := make(chan struct{}, 5)
	release := make(chan struct{})

	api := &mockStarAPI{}
	api.On("GetConversationHistoryContext", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			started <- struct{}{}
			<-release
		}).
		Return(historyWith(standardMessage("hello", testTS)), nil)
	api.On("AddStarContext", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	q := queue.New[StarRequest]()
	replier := newRecordingReplier(nil)
	worker := NewStarWorker(api, q, replier, 0)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(testRequest("https://hooks.example/queued")))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up a request")
	}

	cancel()
	close(release)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	// Only the in-flight request completes; the rest are dropped unanswered.
	assert.Len(t, replier.all(), 1)
	assert.Equal(t, 0, q.Len())
	assert.ErrorIs(t, q.Enqueue(testRequest("https://hooks.example/late")), queue.ErrClosed)
	api.AssertNumberOfCalls(t, "GetConversationHistoryContext", 1)
}

package slack

import (
	"context"
	"sync"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/mock"
)

type mockStarAPI struct {
	mock.Mock
}

func (m *mockStarAPI) GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	args := m.Called(ctx, params)
	if res := args.Get(0); res != nil {
		return res.(*slack.GetConversationHistoryResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStarAPI) AddStarContext(ctx context.Context, channel string, item slack.ItemRef) error {
	args := m.Called(ctx, channel, item)
	return args.Error(0)
}

type sentReply struct {
	responseURL string
	resp        SlashCommandResponse
}

// recordingReplier captures replies instead of posting them.
type recordingReplier struct {
	mu      sync.Mutex
	replies []sentReply
	err     error
	sent    chan struct{}
}

func newRecordingReplier(err error) *recordingReplier {
	return &recordingReplier{
		err:  err,
		sent: make(chan struct{}, 64),
	}
}

func (r *recordingReplier) Send(ctx context.Context, responseURL string, resp SlashCommandResponse) error {
	r.mu.Lock()
	r.replies = append(r.replies, sentReply{responseURL: responseURL, resp: resp})
	r.mu.Unlock()
	r.sent <- struct{}{}
	return r.err
}

func (r *recordingReplier) all() []sentReply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentReply(nil), r.replies...)
}

func historyWith(msgs ...slack.Message) *slack.GetConversationHistoryResponse {
	return &slack.GetConversationHistoryResponse{Messages: msgs}
}

func standardMessage(text, ts string) slack.Message {
	return slack.Message{Msg: slack.Msg{Type: "message", User: "U999", Text: text, Timestamp: ts}}
}

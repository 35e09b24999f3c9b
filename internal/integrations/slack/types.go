package slack

import (
	"fmt"
	"time"

	"starlord/internal/permalink"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
)

// StarRequest is a validated slash command waiting for the star worker.
// It is created once by the handler and never modified afterwards.
type StarRequest struct {
	ID               uuid.UUID
	UserID           string
	MessageTimestamp string
	ChannelID        string
	ResponseURL      string
	EnqueuedAt       time.Time
}

// NewStarRequest builds a StarRequest for the message at ts, which must be in
// canonical "seconds.micros" form.
func NewStarRequest(cmd slack.SlashCommand, ts string) (StarRequest, error) {
	if !permalink.IsTimestamp(ts) {
		return StarRequest{}, fmt.Errorf("invalid message timestamp %q: %w", ts, permalink.ErrMalformedLink)
	}
	return StarRequest{
		ID:               uuid.New(),
		UserID:           cmd.UserID,
		MessageTimestamp: ts,
		ChannelID:        cmd.ChannelID,
		ResponseURL:      cmd.ResponseURL,
		EnqueuedAt:       time.Now(),
	}, nil
}

// ChatMessage is a message fetched from channel history. It is either a
// StandardMessage or an OtherMessage.
type ChatMessage interface {
	isChatMessage()
}

// StandardMessage is a plain user message that can be starred.
type StandardMessage struct {
	Text string
}

// OtherMessage covers every other history entry: joins, bot posts, file
// shares, edits and so on.
type OtherMessage struct {
	Type    string
	SubType string
}

func (StandardMessage) isChatMessage() {}
func (OtherMessage) isChatMessage()    {}

func classifyMessage(msg slack.Message) ChatMessage {
	if (msg.Type == "" || msg.Type == "message") && msg.SubType == "" {
		return StandardMessage{Text: msg.Text}
	}
	return OtherMessage{Type: msg.Type, SubType: msg.SubType}
}

const responseTypeEphemeral = "ephemeral"

// SlashCommandResponse is the JSON body posted to a slash command's response URL.
type SlashCommandResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

// EphemeralResponse returns a reply only the invoking user can see.
func EphemeralResponse(text string) SlashCommandResponse {
	return SlashCommandResponse{
		ResponseType: responseTypeEphemeral,
		Text:         text,
	}
}

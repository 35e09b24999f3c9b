package slack

import (
	"errors"

	"github.com/slack-go/slack"
)

// ErrBadToken is returned when a slash command carries the wrong verification token.
var ErrBadToken = errors.New("bad verification token")

// VerifyToken checks the command's token against the configured secret.
func VerifyToken(cmd slack.SlashCommand, verificationToken string) error {
	if verificationToken == "" || !cmd.ValidateToken(verificationToken) {
		return ErrBadToken
	}
	return nil
}

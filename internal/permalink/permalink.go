package permalink

import (
	"errors"
	"regexp"
)

// ErrMalformedLink is returned when text does not contain a Slack message permalink.
var ErrMalformedLink = errors.New("no slack message permalink found")

var (
	// Sample url:
	// https://spychat.slack.com/archives/general/p1482786363038760
	archiveLinkPattern = regexp.MustCompile(`https://\w+\.slack\.com/archives/\w+/p(\d{10})(\d{6})`)

	timestampPattern = regexp.MustCompile(`^\d{10}\.\d{6}$`)
)

// ExtractTimestamp finds the first message permalink in text and returns the
// message timestamp in Slack's "seconds.micros" form.
//
// The channel segment of the link is not checked against anything.
func ExtractTimestamp(text string) (string, error) {
	matches := archiveLinkPattern.FindStringSubmatch(text)
	if matches == nil {
		return "", ErrMalformedLink
	}
	return matches[1] + "." + matches[2], nil
}

// IsTimestamp reports whether ts has the exact "10digits.6digits" shape.
func IsTimestamp(ts string) bool {
	return timestampPattern.MatchString(ts)
}

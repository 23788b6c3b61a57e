package youtube

import (
	"fmt"
	"regexp"
	"strings"
)

var bareIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// videoIDPatterns cover the common YouTube URL shapes: watch pages, youtu.be
// short links, embeds, mobile pages and shorts.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)youtube\.com/watch\?(?:.*&)?v=([^&?/\s]+)`),
	regexp.MustCompile(`(?i)youtu\.be/([^&?/\s]+)`),
	regexp.MustCompile(`(?i)youtube\.com/embed/([^&?/\s]+)`),
	regexp.MustCompile(`(?i)youtube\.com/shorts/([^&?/\s]+)`),
}

// ExtractVideoID pulls the video id out of a YouTube URL, or returns the input
// unchanged when it already looks like a bare id.
func ExtractVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("no URL provided")
	}
	if bareIDRe.MatchString(input) {
		return input, nil
	}
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(input); len(m) == 2 {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("could not extract video id from URL: %s", input)
}

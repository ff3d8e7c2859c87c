package generator

import (
	"regexp"
	"strings"
)

// Intent is what we could parse out of a free-form request: the topic
// being asked about, the target platform, and optional qualifiers.
// Missing fields stay empty and the templates fall back to generic
// wording.
type Intent struct {
	Topic       string
	Platform    string
	ContentType string
	Audience    string
	Tone        string
}

var topicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)about\s+([^,.!?]+)`),
	regexp.MustCompile(`(?i)for\s+([^,.!?]+)`),
}

// ParseIntent extracts topic and platform hints from a chat message.
func ParseIntent(message string) Intent {
	var intent Intent
	lower := strings.ToLower(message)

	for _, re := range topicPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			intent.Topic = strings.TrimSpace(m[1])
			break
		}
	}

	switch {
	case strings.Contains(lower, "instagram"), strings.Contains(lower, " ig "):
		intent.Platform = "instagram"
	case strings.Contains(lower, "tiktok"):
		intent.Platform = "tiktok"
	case strings.Contains(lower, "linkedin"):
		intent.Platform = "linkedin"
	case strings.Contains(lower, "twitter"):
		intent.Platform = "twitter"
	}

	return intent
}

// topicOr returns the parsed topic or a fallback for template slots.
func (i Intent) topicOr(fallback string) string {
	if i.Topic != "" {
		return i.Topic
	}
	return fallback
}

func (i Intent) platformOr(fallback string) string {
	if i.Platform != "" {
		return i.Platform
	}
	return fallback
}

package platform

import "strings"

// Tag identifies the platform handling strategy for a URL
type Tag string

const (
	TagYouTube   Tag = "youtube"
	TagTikTok    Tag = "tiktok"
	TagInstagram Tag = "instagram"
	TagTwitter   Tag = "twitter"
	TagGeneric   Tag = "generic"
)

// Rule maps URL fragments to a platform tag
type Rule struct {
	Fragments []string
	Tag       Tag
}

// Classification rules, checked in order. First match wins; anything
// unmatched falls through to generic.
var rules = []Rule{
	{Fragments: []string{"youtube.com", "youtu.be"}, Tag: TagYouTube},
	{Fragments: []string{"tiktok.com"}, Tag: TagTikTok},
	{Fragments: []string{"instagram.com", "instagr.am"}, Tag: TagInstagram},
	{Fragments: []string{"twitter.com", "x.com"}, Tag: TagTwitter},
}

// Classify identifies the platform from a raw URL by case-insensitive
// substring matching. The raw string is matched as-is, no URL parsing.
func Classify(rawURL string) Tag {
	lower := strings.ToLower(rawURL)
	for _, rule := range rules {
		for _, fragment := range rule.Fragments {
			if strings.Contains(lower, fragment) {
				return rule.Tag
			}
		}
	}
	return TagGeneric
}

// Tags returns every known tag including generic
func Tags() []Tag {
	return []Tag{TagYouTube, TagTikTok, TagInstagram, TagTwitter, TagGeneric}
}

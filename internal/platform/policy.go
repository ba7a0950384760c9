package platform

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Policy holds the per-platform download knobs. Policies shape the
// extractor invocation; credentials (cookies, user agents, proxies)
// are resolved separately.
type Policy struct {
	Tag              Tag      `toml:"-"`
	RequiresCookie   bool     `toml:"requires_cookie"`
	CookieFile       string   `toml:"cookie_file"` // Filename under the cookies directory
	FormatCandidates []string `toml:"format_candidates"`
	ExtractorArgs    []string `toml:"extractor_args"`
	MergeFormat      string   `toml:"merge_format"`
}

// PolicySet is the resolved policy table for all tags
type PolicySet struct {
	policies map[Tag]Policy
}

// DefaultPolicies returns the built-in policy table.
//
// Every candidate list ends in "best" so the final fallback attempt is
// always the most permissive selector yt-dlp accepts.
func DefaultPolicies() *PolicySet {
	return &PolicySet{policies: map[Tag]Policy{
		TagYouTube: {
			Tag:            TagYouTube,
			RequiresCookie: true,
			CookieFile:     "cookies.txt",
			FormatCandidates: []string{
				"bv*+ba/bestvideo+bestaudio/best",
				"bestvideo+bestaudio/best",
				"best",
			},
			ExtractorArgs: []string{"youtube:player_client=web,android"},
			MergeFormat:   "mp4",
		},
		TagTikTok: {
			Tag:              TagTikTok,
			RequiresCookie:   true,
			CookieFile:       "tiktok.txt",
			FormatCandidates: []string{"best"},
		},
		TagInstagram: {
			Tag:              TagInstagram,
			RequiresCookie:   true,
			CookieFile:       "instagram.txt",
			FormatCandidates: []string{"best"},
		},
		TagTwitter: {
			Tag:              TagTwitter,
			RequiresCookie:   true,
			CookieFile:       "twitter.txt",
			FormatCandidates: []string{"best"},
		},
		TagGeneric: {
			Tag:              TagGeneric,
			RequiresCookie:   false,
			FormatCandidates: []string{"best"},
		},
	}}
}

// For returns the policy for a tag. Unknown tags get the generic policy
// so classification stays total.
func (s *PolicySet) For(tag Tag) Policy {
	if pol, ok := s.policies[tag]; ok {
		return pol
	}
	return s.policies[TagGeneric]
}

// Validate checks the invariants every policy must hold: a non-empty
// candidate list whose final entry is exactly "best", and a cookie file
// name whenever a cookie is required.
func (s *PolicySet) Validate() error {
	for tag, pol := range s.policies {
		if len(pol.FormatCandidates) == 0 {
			return fmt.Errorf("platform %s: format_candidates must not be empty", tag)
		}
		if last := pol.FormatCandidates[len(pol.FormatCandidates)-1]; last != "best" {
			return fmt.Errorf("platform %s: final format candidate must be %q, got %q", tag, "best", last)
		}
		if pol.RequiresCookie && pol.CookieFile == "" {
			return fmt.Errorf("platform %s: requires_cookie set without cookie_file", tag)
		}
	}
	return nil
}

// policyFile is the TOML shape of a policy override file:
//
//	[platforms.youtube]
//	requires_cookie = true
//	cookie_file = "cookies.txt"
//	format_candidates = ["bestvideo+bestaudio/best", "best"]
type policyFile struct {
	Platforms map[string]Policy `toml:"platforms"`
}

// LoadPolicies builds the policy table from defaults, overlaying
// per-tag entries from a TOML file when path is non-empty. An override
// replaces the whole entry for its tag, it is not merged field by field.
func LoadPolicies(path string) (*PolicySet, error) {
	set := DefaultPolicies()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read platforms file: %w", err)
		}

		var file policyFile
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse platforms file: %w", err)
		}

		for name, pol := range file.Platforms {
			tag := Tag(name)
			pol.Tag = tag
			set.policies[tag] = pol
		}
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}

	return set, nil
}

// Package profile inspects rendered target-profile pages. It classifies the
// page into an availability status and extracts a best-effort snapshot of the
// profile's public numbers. Both are pure functions of the page content.
package profile

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/jsonquery"
)

// Status is the availability classification of a loaded profile page.
type Status struct {
	Blocked   bool
	Private   bool
	NotFound  bool
	Suspended bool
	Reason    string
}

// Available reports whether the profile can be engaged with.
func (s Status) Available() bool {
	return !s.Blocked
}

// Classify matches the rendered page text against the known unavailability
// phrases in priority order; the first match wins. Absence of all phrases
// yields an available status.
func Classify(content string) Status {
	switch {
	case strings.Contains(content, "Sorry, this page isn't available"):
		return Status{Blocked: true, NotFound: true, Reason: "page not available"}
	case strings.Contains(content, "This Account is Private"),
		strings.Contains(content, "This account is private"):
		return Status{Blocked: true, Private: true, Reason: "account is private"}
	case strings.Contains(content, "User not found"):
		return Status{Blocked: true, NotFound: true, Reason: "user not found"}
	case strings.Contains(strings.ToLower(content), "temporarily unavailable"):
		return Status{Blocked: true, Suspended: true, Reason: "account temporarily unavailable"}
	}
	return Status{}
}

// Info is a transient snapshot of a target profile, gathered once per chain
// run and refreshed opportunistically after engagement actions.
type Info struct {
	Username   string
	Posts      int
	Followers  int
	Following  int
	HasStories bool
	Verified   bool
	Bio        string
}

// Extract parses the profile page and fills in whatever fields it can find.
// Extraction of each field is independent; a field that cannot be read keeps
// its zero value. Extract never fails the chain.
func Extract(content, username string) Info {
	info := Info{Username: username}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return info
	}

	stats := doc.Find("main ul li")
	if stats.Length() >= 3 {
		info.Posts = ParseCount(stats.Eq(0).Text())
		info.Followers = ParseCount(stats.Eq(1).Text())
		info.Following = ParseCount(stats.Eq(2).Text())
	} else {
		// Fallback to the JSON blob the platform embeds in script tags.
		extractFromEmbeddedJSON(doc, &info)
	}

	info.HasStories = doc.Find("canvas").Length() > 0
	info.Verified = doc.Find("[aria-label*='Verified']").Length() > 0

	if bio := doc.Find("main section span").First(); bio.Length() > 0 {
		info.Bio = strings.TrimSpace(bio.Text())
	}

	return info
}

// extractFromEmbeddedJSON reads follower/following/post counts out of inline
// JSON when the markup-based extraction finds nothing.
func extractFromEmbeddedJSON(doc *goquery.Document, info *Info) {
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "edge_followed_by") {
			return true
		}
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return true
		}
		jdoc, err := jsonquery.Parse(strings.NewReader(text[start : end+1]))
		if err != nil {
			return true
		}
		if n := jsonquery.FindOne(jdoc, "//edge_followed_by/count"); n != nil {
			info.Followers = asInt(n.Value())
		}
		if n := jsonquery.FindOne(jdoc, "//edge_follow/count"); n != nil {
			info.Following = asInt(n.Value())
		}
		if n := jsonquery.FindOne(jdoc, "//edge_owner_to_timeline_media/count"); n != nil {
			info.Posts = asInt(n.Value())
		}
		return false
	})
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		return ParseCount(n)
	}
	return 0
}

var nonNumberRe = regexp.MustCompile(`[^\d,.]`)

// ParseCount converts a human-formatted count like "1,234 posts", "10K" or
// "1.2M" into an integer. Unparseable input yields 0.
func ParseCount(text string) int {
	numbersOnly := nonNumberRe.ReplaceAllString(text, "")
	numbersOnly = strings.ReplaceAll(numbersOnly, ",", "")
	if numbersOnly == "" {
		return 0
	}
	upper := strings.ToUpper(text)
	base, err := strconv.ParseFloat(numbersOnly, 64)
	if err != nil {
		return 0
	}
	switch {
	case strings.Contains(upper, "K"):
		return int(base * 1_000)
	case strings.Contains(upper, "M"):
		return int(base * 1_000_000)
	}
	return int(base)
}

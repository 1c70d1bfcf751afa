// Package platform classifies a job-application URL into the closed set
// of ATS platform tags recognized by the rest of the engine (§3, §6).
package platform

import "regexp"

// Tag is the closed set of recognized ATS platforms.
type Tag string

const (
	Greenhouse Tag = "greenhouse"
	Workday    Tag = "workday"
	Lever      Tag = "lever"
	Rippling   Tag = "rippling"
	LinkedIn   Tag = "linkedin"
	Indeed     Tag = "indeed"
	Glassdoor  Tag = "glassdoor"
	AngelList  Tag = "angellist"
	Unknown    Tag = "unknown"
)

// pattern binds a Tag to the URL regex that recognizes it. Order matters:
// the first match wins, so more specific patterns are listed first.
type pattern struct {
	tag Tag
	re  *regexp.Regexp
}

var patterns = []pattern{
	{Greenhouse, regexp.MustCompile(`greenhouse\.io`)},
	{Workday, regexp.MustCompile(`myworkdayjobs\.com|workday\.com|wd\d+\.myworkdayjobs\.com`)},
	{Lever, regexp.MustCompile(`lever\.co`)},
	{Rippling, regexp.MustCompile(`ats\.rippling\.com|rippling\.com/jobs`)},
	{LinkedIn, regexp.MustCompile(`linkedin\.com/jobs`)},
	{Indeed, regexp.MustCompile(`indeed\.com|indeed\.[a-z]{2,3}`)},
	{Glassdoor, regexp.MustCompile(`glassdoor\.com`)},
	{AngelList, regexp.MustCompile(`angel\.co|angellist\.com|wellfound\.com`)},
}

// Detect returns the Tag for url, or Unknown if nothing matches.
func Detect(url string) Tag {
	for _, p := range patterns {
		if p.re.MatchString(url) {
			return p.tag
		}
	}
	return Unknown
}

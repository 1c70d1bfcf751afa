package platform

import "testing"

func TestDetect(t *testing.T) {
	cases := []struct {
		url  string
		want Tag
	}{
		{"https://boards.greenhouse.io/acme/jobs/123", Greenhouse},
		{"https://acme.wd5.myworkdayjobs.com/en-US/careers/job/123", Workday},
		{"https://jobs.lever.co/acme/abc-123", Lever},
		{"https://ats.rippling.com/acme/jobs/1", Rippling},
		{"https://www.linkedin.com/jobs/view/123", LinkedIn},
		{"https://www.indeed.com/viewjob?jk=abc", Indeed},
		{"https://www.glassdoor.com/job-listing/abc", Glassdoor},
		{"https://wellfound.com/jobs/123", AngelList},
		{"https://careers.acme.com/apply/123", Unknown},
	}
	for _, c := range cases {
		if got := Detect(c.url); got != c.want {
			t.Errorf("Detect(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

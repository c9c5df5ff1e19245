package browser

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/zulandar/switchboard/internal/models"
)

const profileBase = "https://www.linkedin.com/in/"

// ReadProfile opens leadID's profile in a separate tab and reads the public
// header fields. A profile that cannot be loaded yields nil.
func (b *Browser) ReadProfile(ctx context.Context, leadID string) (*models.LeadProfile, error) {
	if leadID == "" || strings.ContainsAny(leadID, "/?#") {
		return nil, nil
	}
	tab, err := b.rod.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("browser: open profile tab: %w", err)
	}
	defer tab.Close()

	p := tab.Context(ctx).Timeout(loadTimeout)
	if err := p.Navigate(profileBase + url.PathEscape(leadID) + "/"); err != nil {
		return nil, nil
	}
	if err := p.WaitLoad(); err != nil {
		return nil, nil
	}

	prof := &models.LeadProfile{LeadID: leadID}
	prof.Headline = textOf(p, b.sel.Headline)
	prof.Location = textOf(p, b.sel.Location)
	prof.ConnectionDegree = ParseDegree(textOf(p, b.sel.Degree))
	prof.JobTitle, prof.Company = SplitHeadline(prof.Headline)
	return prof, nil
}

func textOf(p *rod.Page, sel string) string {
	has, el, err := p.Has(sel)
	if err != nil || !has {
		return ""
	}
	s, err := el.Text()
	if err != nil {
		return ""
	}
	return CleanText(s)
}

var (
	profilePathRe = regexp.MustCompile(`/in/([^/?#]+)`)
	threadPathRe  = regexp.MustCompile(`/messaging/thread/([^/?#]+)`)
	degreeRe      = regexp.MustCompile(`\b(1st|2nd|3rd)\+?`)
)

// LeadIDFromProfileURL extracts the public profile slug from a profile link.
func LeadIDFromProfileURL(href string) string {
	m := profilePathRe.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	id, err := url.PathUnescape(m[1])
	if err != nil {
		return m[1]
	}
	return id
}

// ThreadIDFromHref extracts the conversation id from a thread link.
func ThreadIDFromHref(href string) string {
	m := threadPathRe.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	return m[1]
}

// ParseDegree normalizes a connection degree badge ("· 2nd") to "2nd".
func ParseDegree(s string) string {
	return degreeRe.FindString(s)
}

// SplitHeadline splits "Title at Company" headlines. Headlines without " at "
// are returned whole as the title.
func SplitHeadline(headline string) (title, company string) {
	headline = strings.TrimSpace(headline)
	if i := strings.Index(strings.ToLower(headline), " at "); i >= 0 {
		title = strings.TrimSpace(headline[:i])
		company = strings.TrimSpace(headline[i+4:])
		if j := strings.IndexAny(company, "|·,"); j >= 0 {
			company = strings.TrimSpace(company[:j])
		}
		return title, company
	}
	if i := strings.IndexAny(headline, "|@"); i > 0 {
		return strings.TrimSpace(headline[:i]), ""
	}
	return headline, ""
}

// CleanText collapses whitespace, including the line breaks LinkedIn puts
// inside names and badges.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

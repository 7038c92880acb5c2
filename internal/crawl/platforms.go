package crawl

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/jobharbor/harvest/internal/normalize"
	"github.com/jobharbor/harvest/pkg/models"
)

// Platform is a known career-page platform (ATS) with a fixed, reusable page
// structure. Hosts are matched by substring.
type Platform struct {
	Name     string
	Host     string // substring matched against the URL host
	Job      string // selector for one posting container
	Title    string // selector within the container
	Location string
	Link     string
}

// platforms is the finite table of supported ATS hosts.
var platforms = []Platform{
	{Name: "greenhouse", Host: "greenhouse.io", Job: ".opening", Title: "a", Location: ".location", Link: "a"},
	{Name: "lever", Host: "lever.co", Job: ".posting", Title: ".posting-title h5", Location: ".posting-categories .location", Link: "a.posting-title"},
	{Name: "workable", Host: "workable.com", Job: "li[data-ui='job']", Title: "[data-ui='job-title']", Location: "[data-ui='job-location']", Link: "a"},
	{Name: "ashby", Host: "ashbyhq.com", Job: "[class*='jobPosting']", Title: "h3", Location: "[class*='location']", Link: "a"},
	{Name: "smartrecruiters", Host: "smartrecruiters.com", Job: ".opening-job", Title: "h4", Location: ".job-location", Link: "a"},
	{Name: "recruitee", Host: "recruitee.com", Job: "[class*='offer']", Title: "h5", Location: "[class*='location']", Link: "a"},
}

// matchPlatform returns the platform whose host substring matches the URL
// host, if any.
func matchPlatform(rawURL string) (Platform, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Platform{}, false
	}
	host := strings.ToLower(u.Hostname())
	for _, p := range platforms {
		if strings.Contains(host, p.Host) {
			return p, true
		}
	}
	return Platform{}, false
}

// extractPlatform pulls postings using the platform's fixed selector triplet.
func extractPlatform(doc *goquery.Document, p Platform, target models.CrawlTarget) []models.JobCandidate {
	var out []models.JobCandidate

	doc.Find(p.Job).Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(p.Title).First().Text())
		if title == "" {
			return
		}

		location := strings.TrimSpace(sel.Find(p.Location).First().Text())
		link, _ := sel.Find(p.Link).First().Attr("href")
		link = absoluteURL(target.URL, link)

		out = append(out, models.JobCandidate{
			Title:      title,
			Company:    target.Company,
			Location:   location,
			URL:        target.URL,
			ApplyURL:   link,
			Source:     target.Name,
			ExternalID: normalize.StableID(link, title),
		})
	})

	log.Debug().
		Str("platform", p.Name).
		Str("url", target.URL).
		Int("candidates", len(out)).
		Msg("platform extraction completed")
	return out
}

// absoluteURL resolves href against the page URL.
func absoluteURL(pageURL, href string) string {
	if href == "" {
		return pageURL
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

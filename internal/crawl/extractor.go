package crawl

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobharbor/harvest/internal/normalize"
	"github.com/jobharbor/harvest/pkg/models"
)

const (
	minPostingTextLen = 10
	maxPostingTextLen = 500
)

// roleKeywords is the fixed set a posting's text must hit at least once to
// count as job-like.
var roleKeywords = []string{
	"engineer", "developer", "manager", "analyst", "designer", "specialist",
	"coordinator", "director", "lead", "scientist", "architect", "intern",
	"associate",
}

// jobClassHints mark sub-elements that look like individual postings inside
// a container.
var jobClassHints = []string{"job", "posting", "opening", "vacancy", "position", "career", "offer", "listing"}

var (
	cityStateRe = regexp.MustCompile(`\b[A-Z][a-zA-Z]+(?: [A-Z][a-zA-Z]+)?,\s*(?:[A-Z]{2}|[A-Z][a-zA-Z]+)\b`)
	workModeRe  = regexp.MustCompile(`(?i)\b(remote|hybrid|on-?site)\b`)
	locationRe  = regexp.MustCompile(`(?i)location[:\s]+([^\n|•]{2,60})`)
	styleMarkRe = regexp.MustCompile(`(?i)(\{|\}|function\s*\(|<style|<script|@media|!important)`)
)

// hasRoleKeyword reports whether the text mentions at least one role keyword.
func hasRoleKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range roleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// looksLikeJobText applies the length and content gates for a single posting.
func looksLikeJobText(text string) bool {
	n := len(strings.TrimSpace(text))
	if n < minPostingTextLen || n > maxPostingTextLen {
		return false
	}
	if styleMarkRe.MatchString(text) {
		return false
	}
	return hasRoleKeyword(text)
}

// postingElements decides whether sel is a container of multiple postings.
// It searches nested elements for repeated job-like sub-elements, either by
// class-name hint or by job-like text. When found, each sub-element is
// extracted on its own; otherwise the selection itself is one posting.
func postingElements(sel *goquery.Selection) []*goquery.Selection {
	var subs []*goquery.Selection

	sel.Find("li, article, div, tr").Each(func(_ int, child *goquery.Selection) {
		class, _ := child.Attr("class")
		lowerClass := strings.ToLower(class)
		for _, hint := range jobClassHints {
			if strings.Contains(lowerClass, hint) {
				subs = append(subs, child)
				return
			}
		}
		if looksLikeJobText(child.Text()) && child.Children().Length() <= 6 {
			subs = append(subs, child)
		}
	})

	// One hit is not a repeated structure; treat the container as a single
	// posting in that case.
	if len(subs) >= 2 {
		return subs
	}
	return []*goquery.Selection{sel}
}

// extractPosting turns one element into a candidate. Returns false when the
// element does not look like a job posting.
func extractPosting(sel *goquery.Selection, target models.CrawlTarget) (models.JobCandidate, bool) {
	text := strings.TrimSpace(sel.Text())
	if !looksLikeJobText(text) {
		return models.JobCandidate{}, false
	}

	title := extractTitle(sel, text)
	if title == "" {
		return models.JobCandidate{}, false
	}

	applyURL := target.URL
	if href, ok := sel.Find("a[href]").First().Attr("href"); ok {
		applyURL = absoluteURL(target.URL, href)
	} else if href, ok := sel.Attr("href"); ok {
		applyURL = absoluteURL(target.URL, href)
	}

	return models.JobCandidate{
		Title:      title,
		Company:    target.Company,
		Location:   extractLocation(text),
		URL:        target.URL,
		ApplyURL:   applyURL,
		Source:     target.Name,
		ExternalID: normalize.StableID(applyURL, title),
	}, true
}

// extractTitle prefers heading or link text, falling back to the first line
// of the element's text.
func extractTitle(sel *goquery.Selection, text string) string {
	for _, s := range []string{"h1", "h2", "h3", "h4", "h5", "a"} {
		t := strings.TrimSpace(sel.Find(s).First().Text())
		if t != "" && hasRoleKeyword(t) && len(t) <= 150 {
			return collapseSpaces(t)
		}
	}

	line := text
	if i := strings.IndexAny(text, "\n|•"); i > 0 {
		line = text[:i]
	}
	line = collapseSpaces(line)
	if hasRoleKeyword(line) && len(line) <= 150 {
		return line
	}
	return ""
}

// extractLocation infers a location from the posting text by regex proximity,
// defaulting to Remote when nothing matches.
func extractLocation(text string) string {
	if m := locationRe.FindStringSubmatch(text); m != nil {
		return collapseSpaces(m[1])
	}
	if m := cityStateRe.FindString(text); m != "" {
		return m
	}
	if m := workModeRe.FindString(text); m != "" {
		lower := strings.ToLower(m)
		return strings.ToUpper(lower[:1]) + lower[1:]
	}
	return "Remote"
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package crawl

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"

	"github.com/jobharbor/harvest/internal/normalize"
	"github.com/jobharbor/harvest/pkg/models"
)

// extractEmbedded runs inline scripts in a sandboxed VM and harvests job
// arrays assigned to page globals (window.__JOBS__, initial-state blobs and
// the like). JS-heavy pages often ship their listings this way even when the
// rendered DOM is empty. Script failures are expected and ignored.
func extractEmbedded(doc *goquery.Document, target models.CrawlTarget) []models.JobCandidate {
	vm := goja.New()

	// Minimal browser environment, just enough to capture data assignments.
	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())
	vm.Set("document", map[string]interface{}{
		"location": map[string]interface{}{"href": target.URL},
	})
	vm.Set("location", map[string]interface{}{"href": target.URL})
	vm.Set("console", map[string]interface{}{
		"log":   func(call goja.FunctionCall) goja.Value { return nil },
		"error": func(call goja.FunctionCall) goja.Value { return nil },
	})

	executed := 0
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if _, external := sel.Attr("src"); external {
			return
		}
		src := sel.Text()
		if strings.TrimSpace(src) == "" {
			return
		}
		// Most scripts fail against the stub DOM; assignments that run
		// before the failure are still visible on the global object.
		if _, err := vm.RunString(src); err == nil {
			executed++
		}
	})

	var out []models.JobCandidate
	for _, key := range vm.GlobalObject().Keys() {
		if isStandardGlobal(key) {
			continue
		}
		val := vm.Get(key)
		if val == nil {
			continue
		}
		out = append(out, candidatesFromValue(val.Export(), target, 0)...)
	}

	if len(out) > 0 {
		log.Debug().
			Str("url", target.URL).
			Int("scripts", executed).
			Int("candidates", len(out)).
			Msg("embedded script state yielded candidates")
	}
	return out
}

// maxStateDepth bounds the walk through exported JS values; initial-state
// blobs can reference themselves.
const maxStateDepth = 6

// candidatesFromValue walks an exported JS value looking for arrays of
// objects with job-shaped fields.
func candidatesFromValue(v interface{}, target models.CrawlTarget, depth int) []models.JobCandidate {
	if depth > maxStateDepth {
		return nil
	}

	switch val := v.(type) {
	case []interface{}:
		var out []models.JobCandidate
		for _, item := range val {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if c, ok := candidateFromObject(obj, target); ok {
				out = append(out, c)
			}
		}
		return out
	case map[string]interface{}:
		var out []models.JobCandidate
		for _, nested := range val {
			out = append(out, candidatesFromValue(nested, target, depth+1)...)
		}
		return out
	case string:
		// JSON embedded as a string literal.
		trimmed := strings.TrimSpace(val)
		if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
			var decoded interface{}
			if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
				return candidatesFromValue(decoded, target, depth+1)
			}
		}
		return nil
	default:
		return nil
	}
}

// jobObjectFields are the alternate key names checked, in order, when mapping
// an embedded object to a candidate.
var (
	embeddedTitleKeys   = []string{"title", "job_title", "jobTitle", "name", "position"}
	embeddedURLKeys     = []string{"apply_url", "applyUrl", "url", "absolute_url", "hostedUrl", "link"}
	embeddedLocKeys     = []string{"location", "office", "city", "workplace"}
	embeddedDescKeys    = []string{"description", "content", "summary"}
	embeddedCompanyKeys = []string{"company", "company_name", "companyName", "employer"}
)

func firstString(obj map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			switch s := v.(type) {
			case string:
				if strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			case map[string]interface{}:
				// Nested display objects ({"name": "..."} / {"display_name": "..."}).
				for _, nk := range []string{"name", "display_name", "label"} {
					if nv, ok := s[nk].(string); ok && nv != "" {
						return nv
					}
				}
			}
		}
	}
	return ""
}

func candidateFromObject(obj map[string]interface{}, target models.CrawlTarget) (models.JobCandidate, bool) {
	title := firstString(obj, embeddedTitleKeys)
	if title == "" || !hasRoleKeyword(title) {
		return models.JobCandidate{}, false
	}

	applyURL := absoluteURL(target.URL, firstString(obj, embeddedURLKeys))
	company := firstString(obj, embeddedCompanyKeys)
	if company == "" {
		company = target.Company
	}
	location := firstString(obj, embeddedLocKeys)
	if location == "" {
		location = "Remote"
	}

	return models.JobCandidate{
		Title:       title,
		Company:     company,
		Location:    location,
		Description: firstString(obj, embeddedDescKeys),
		URL:         target.URL,
		ApplyURL:    applyURL,
		Source:      target.Name,
		ExternalID:  normalize.StableID(applyURL, title),
	}, true
}

func isStandardGlobal(key string) bool {
	standards := map[string]bool{
		"window": true, "self": true, "document": true, "location": true, "console": true,
		"Object": true, "Array": true, "String": true, "Number": true, "Boolean": true,
		"Date": true, "Math": true, "JSON": true, "RegExp": true, "Error": true,
		"Function": true, "parseInt": true, "parseFloat": true, "isNaN": true,
		"isFinite": true, "encodeURI": true, "decodeURI": true, "encodeURIComponent": true,
		"decodeURIComponent": true, "undefined": true, "NaN": true, "Infinity": true,
	}
	return standards[key]
}

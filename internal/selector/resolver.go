// Package selector turns declarative locator expressions into goquery
// selectors. CSS expressions pass through; XPath-like expressions are
// converted best-effort, and anything that cannot be converted safely falls
// back to a fixed generic selector set. Conversion never returns an error to
// the caller.
package selector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jobharbor/harvest/pkg/models"
)

// Tier reports which resolution path produced the selectors, so callers and
// tests can tell a clean conversion from a fallback.
type Tier string

const (
	// TierDirect is a CSS expression used as-is.
	TierDirect Tier = "direct"
	// TierConverted is an XPath-like expression converted to CSS.
	TierConverted Tier = "converted"
	// TierUnsupported is an XPath construct the converter refuses to
	// translate; the generic selector set is used instead.
	TierUnsupported Tier = "unsupported"
	// TierFallback is a conversion that failed mid-way; the generic
	// selector set is used instead.
	TierFallback Tier = "fallback"
)

// Resolution is the outcome of resolving one locator.
type Resolution struct {
	Tier      Tier
	Selectors []string
}

// GenericSelectors is the fixed fallback set used when a locator cannot be
// resolved. Ordered from most to least specific.
var GenericSelectors = []string{
	".job-listing",
	".job-posting",
	".job-card",
	".job",
	".vacancy",
	".opening",
	".position",
	"[class*='job']",
	"[class*='career']",
	"[class*='opening']",
	"li",
	"article",
}

var (
	// Constructs the converter will not attempt. Parenthesised indexed
	// predicates, text() matching, and position() have no safe CSS
	// equivalent.
	unsupportedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\s*\(`),                // (//div[@class='a'])[2]
		regexp.MustCompile(`contains\(\s*text\(\)`), // contains(text(), ...)
		regexp.MustCompile(`text\(\)\s*=`),          // text()='...'
		regexp.MustCompile(`position\(\)`),
		regexp.MustCompile(`last\(\)`),
		regexp.MustCompile(`::`), // axes (following-sibling:: etc.)
	}

	attrEq        = regexp.MustCompile(`^@([\w-]+)\s*=\s*['"]([^'"]*)['"]$`)
	containsClass = regexp.MustCompile(`^contains\(\s*@class\s*,\s*['"]([^'"]*)['"]\s*\)$`)
	containsAttr  = regexp.MustCompile(`^contains\(\s*@([\w-]+)\s*,\s*['"]([^'"]*)['"]\s*\)$`)
	numericIndex  = regexp.MustCompile(`^\d+$`)
)

// Resolve converts one locator into a selector list. It never fails: locators
// that cannot be honored resolve to the generic fallback set.
func Resolve(loc models.Locator) Resolution {
	switch loc.Type {
	case models.SelectorCSS:
		expr := strings.TrimSpace(loc.Expr)
		if expr == "" {
			return Resolution{Tier: TierFallback, Selectors: GenericSelectors}
		}
		return Resolution{Tier: TierDirect, Selectors: []string{expr}}

	case models.SelectorXPath:
		for _, p := range unsupportedPatterns {
			if p.MatchString(loc.Expr) {
				log.Debug().Str("expr", loc.Expr).Msg("unsupported xpath construct, using generic selectors")
				return Resolution{Tier: TierUnsupported, Selectors: GenericSelectors}
			}
		}
		css, ok := convertXPath(loc.Expr)
		if !ok {
			log.Debug().Str("expr", loc.Expr).Msg("xpath conversion failed, using generic selectors")
			return Resolution{Tier: TierFallback, Selectors: GenericSelectors}
		}
		return Resolution{Tier: TierConverted, Selectors: []string{css}}

	default:
		return Resolution{Tier: TierFallback, Selectors: GenericSelectors}
	}
}

// convertXPath translates a simple XPath to CSS. Handles descendant (//) and
// child (/) steps, [@attr='v'] and [contains(@class,'v')] predicates, and
// plain numeric indexes. Anything else reports !ok.
func convertXPath(expr string) (string, bool) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return "", false
	}

	// Leading // means "descendant of root", which CSS implies already.
	s = strings.TrimPrefix(s, "//")

	// Tokenize steps, remembering the combinator that preceded each.
	var out strings.Builder
	for i, step := range splitSteps(s) {
		if step.name == "" {
			return "", false
		}
		if i > 0 {
			if step.descendant {
				out.WriteString(" ")
			} else {
				out.WriteString(" > ")
			}
		}

		name := step.name
		if name == "*" {
			name = ""
			if len(step.predicates) == 0 {
				name = "*"
			}
		}
		out.WriteString(name)

		for _, pred := range step.predicates {
			css, ok := convertPredicate(pred)
			if !ok {
				return "", false
			}
			out.WriteString(css)
		}
	}

	result := strings.TrimSpace(out.String())
	if result == "" {
		return "", false
	}
	return result, true
}

type step struct {
	name       string
	predicates []string
	descendant bool // preceded by // rather than /
}

// splitSteps breaks "div//span[@id='x']/a" into its path steps. Brackets
// never nest in the grammar we accept, so a flat scan suffices.
func splitSteps(s string) []step {
	var steps []step
	cur := step{}
	depth := 0
	var buf strings.Builder

	flush := func() {
		raw := buf.String()
		buf.Reset()
		name, preds := splitPredicates(raw)
		cur.name = name
		cur.predicates = preds
		steps = append(steps, cur)
		cur = step{}
	}

	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '[':
			depth++
			buf.WriteByte(c)
			i++
		case c == ']':
			depth--
			buf.WriteByte(c)
			i++
		case c == '/' && depth == 0:
			flush()
			if i+1 < len(s) && s[i+1] == '/' {
				cur.descendant = true
				i += 2
			} else {
				i++
			}
		default:
			buf.WriteByte(c)
			i++
		}
	}
	flush()
	return steps
}

// splitPredicates separates "div[@class='a'][2]" into name and predicate list.
func splitPredicates(raw string) (string, []string) {
	idx := strings.IndexByte(raw, '[')
	if idx < 0 {
		return strings.TrimSpace(raw), nil
	}
	name := strings.TrimSpace(raw[:idx])

	var preds []string
	rest := raw[idx:]
	for len(rest) > 0 && rest[0] == '[' {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			preds = append(preds, strings.TrimSpace(rest[1:]))
			break
		}
		preds = append(preds, strings.TrimSpace(rest[1:end]))
		rest = rest[end+1:]
	}
	return name, preds
}

// convertPredicate maps one XPath predicate to a CSS suffix.
func convertPredicate(pred string) (string, bool) {
	if m := attrEq.FindStringSubmatch(pred); m != nil {
		if m[1] == "class" {
			return "." + escapeClass(m[2]), true
		}
		if m[1] == "id" {
			return "#" + m[2], true
		}
		return fmt.Sprintf("[%s='%s']", m[1], m[2]), true
	}
	if m := containsClass.FindStringSubmatch(pred); m != nil {
		return fmt.Sprintf("[class*='%s']", m[1]), true
	}
	if m := containsAttr.FindStringSubmatch(pred); m != nil {
		return fmt.Sprintf("[%s*='%s']", m[1], m[2]), true
	}
	if numericIndex.MatchString(pred) {
		return fmt.Sprintf(":nth-of-type(%s)", pred), true
	}
	return "", false
}

// escapeClass turns a class attribute value into a usable class selector.
// Multi-class values chain ("a b" -> "a.b").
func escapeClass(v string) string {
	return strings.Join(strings.Fields(v), ".")
}

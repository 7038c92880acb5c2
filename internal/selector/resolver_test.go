package selector

import (
	"testing"

	"github.com/jobharbor/harvest/pkg/models"
)

func xpath(expr string) models.Locator {
	return models.Locator{Type: models.SelectorXPath, Expr: expr}
}

func TestResolve_CSSPassthrough(t *testing.T) {
	res := Resolve(models.Locator{Type: models.SelectorCSS, Expr: ".job-card"})
	if res.Tier != TierDirect {
		t.Errorf("tier = %s, want direct", res.Tier)
	}
	if len(res.Selectors) != 1 || res.Selectors[0] != ".job-card" {
		t.Errorf("selectors = %v", res.Selectors)
	}
}

func TestResolve_XPathConversion(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"//div[@class='job']", "div.job"},
		{"//div[@id='listings']/ul/li", "div#listings > ul > li"},
		{"//div//span", "div span"},
		{"//div[contains(@class,'posting')]", "div[class*='posting']"},
		{"//a[@href='/jobs']", "a[href='/jobs']"},
		{"//ul/li[2]", "ul > li:nth-of-type(2)"},
		{"//div[@class='job listing']", "div.job.listing"},
		{"//div[contains(@data-role,'job')]", "div[data-role*='job']"},
	}

	for _, c := range cases {
		res := Resolve(xpath(c.expr))
		if res.Tier != TierConverted {
			t.Errorf("Resolve(%q) tier = %s, want converted", c.expr, res.Tier)
			continue
		}
		if res.Selectors[0] != c.want {
			t.Errorf("Resolve(%q) = %q, want %q", c.expr, res.Selectors[0], c.want)
		}
	}
}

func TestResolve_UnsupportedConstructs(t *testing.T) {
	cases := []string{
		"(//div[@class='a'])[2]",
		"//div[contains(text(),'Engineer')]",
		"//span[text()='Apply']",
		"//li[position()=1]",
		"//li[last()]",
		"//div/following-sibling::span",
	}

	for _, expr := range cases {
		res := Resolve(xpath(expr))
		if res.Tier != TierUnsupported {
			t.Errorf("Resolve(%q) tier = %s, want unsupported", expr, res.Tier)
		}
		if len(res.Selectors) != len(GenericSelectors) {
			t.Errorf("Resolve(%q) should return the generic selector set", expr)
		}
	}
}

func TestResolve_MalformedFallsBack(t *testing.T) {
	cases := []string{
		"",
		"//div[@class=]",
		"//div[foo(bar)]",
	}

	for _, expr := range cases {
		res := Resolve(xpath(expr))
		if res.Tier != TierFallback && res.Tier != TierUnsupported {
			t.Errorf("Resolve(%q) tier = %s, want a fallback tier", expr, res.Tier)
		}
		if len(res.Selectors) == 0 {
			t.Errorf("Resolve(%q) must still produce selectors", expr)
		}
	}
}

func TestResolve_UnknownTypeFallsBack(t *testing.T) {
	res := Resolve(models.Locator{Type: "jsonpath", Expr: "$.jobs"})
	if res.Tier != TierFallback {
		t.Errorf("tier = %s, want fallback", res.Tier)
	}
}

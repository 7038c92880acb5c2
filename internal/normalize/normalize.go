// Package normalize canonicalizes candidate text fields and computes the
// stable content hash persisted with every record.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/rs/zerolog/log"

	"github.com/jobharbor/harvest/pkg/models"
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9 ]+`)
	whitespace = regexp.MustCompile(`\s+`)

	converter = md.NewConverter("", true, nil)
)

// Text lower-cases, trims, collapses whitespace, and strips every character
// that is not alphanumeric or a space.
func Text(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespace.ReplaceAllString(s, " ")
	s = nonAlnum.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ContentHash computes the deterministic hash of the normalized
// title + company + description triple. It changes iff one of the three
// fields changes after normalization.
func ContentHash(title, company, description string) string {
	payload := Text(title) + "|" + Text(company) + "|" + Text(description)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// StableID derives a stable external identifier for crawled postings that
// carry no provider id, from the apply URL and title.
func StableID(applyURL, title string) string {
	sum := sha256.Sum256([]byte(applyURL + "|" + title))
	return hex.EncodeToString(sum[:])[:16]
}

// CleanDescription converts an HTML job description to markdown so that the
// persisted text (and therefore the content hash) does not depend on markup
// noise. Plain text passes through unchanged.
func CleanDescription(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	out, err := converter.ConvertString(s)
	if err != nil {
		log.Debug().Err(err).Msg("description conversion failed, keeping raw text")
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(out)
}

// Apply fills the derived fields of a record from a candidate. Normalization
// always precedes persistence.
func Apply(rec *models.JobRecord, c models.JobCandidate) {
	rec.Title = strings.TrimSpace(c.Title)
	rec.Company = strings.TrimSpace(c.Company)
	rec.Location = strings.TrimSpace(c.Location)
	rec.Description = CleanDescription(c.Description)
	rec.URL = c.URL
	rec.ApplyURL = c.ApplyURL
	rec.Salary = c.Salary
	rec.JobType = c.JobType
	rec.PostedDate = c.PostedDate
	rec.Source = c.Source
	rec.ExternalID = c.ExternalID
	rec.TitleNormalized = Text(c.Title)
	rec.CompanyNormalized = Text(c.Company)
	rec.ContentHash = ContentHash(c.Title, c.Company, rec.Description)
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jobharbor/harvest/pkg/models"
)

// targetsFile is the YAML document shape for career-page targets.
type targetsFile struct {
	Targets []models.CrawlTarget `yaml:"targets"`
}

// LoadTargets reads the career-page targets from a YAML file. A missing path
// means no crawl targets are configured and is not an error.
func LoadTargets(path string) ([]models.CrawlTarget, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	var doc targetsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse targets file: %w", err)
	}

	for i, t := range doc.Targets {
		if t.URL == "" {
			return nil, fmt.Errorf("target %d (%q) has no url", i, t.Name)
		}
		if t.Name == "" {
			doc.Targets[i].Name = t.URL
		}
	}
	return doc.Targets, nil
}

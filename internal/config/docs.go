package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DocsLicense is the license block of the OpenAPI info object.
type DocsLicense struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url,omitempty"`
}

// DocsContact is the contact block of the OpenAPI info object.
type DocsContact struct {
	Name  string `yaml:"name" json:"name,omitempty"`
	Email string `yaml:"email" json:"email,omitempty"`
	URL   string `yaml:"url" json:"url,omitempty"`
}

// DocsInfo describes the published API.
type DocsInfo struct {
	Title       string       `yaml:"title" json:"title"`
	Version     string       `yaml:"version" json:"version"`
	Description string       `yaml:"description" json:"description,omitempty"`
	License     DocsLicense  `yaml:"license" json:"license"`
	Contact     *DocsContact `yaml:"contact" json:"contact,omitempty"`
}

// DefaultDocsInfo returns the built-in API metadata.
func DefaultDocsInfo() DocsInfo {
	return DocsInfo{
		Title:       "SOA1",
		Version:     "4.2.0",
		Description: "SOA1 Swagger",
		License: DocsLicense{
			Name: "Apache 2.0",
			URL:  "https://www.apache.org/licenses/LICENSE-2.0.html",
		},
	}
}

// LoadDocsInfo reads API metadata from a YAML file. Missing keys keep their
// defaults. An empty path returns the defaults.
func LoadDocsInfo(path string) (DocsInfo, error) {
	info := DefaultDocsInfo()
	if path == "" {
		return info, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return info, fmt.Errorf("failed to read docs info: %w", err)
	}
	if err := yaml.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("failed to parse docs info: %w", err)
	}
	if info.Title == "" {
		return info, fmt.Errorf("docs info %s: title is required", path)
	}
	return info, nil
}

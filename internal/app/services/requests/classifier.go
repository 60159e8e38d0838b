package requests

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/egov-platform/citizen-services/internal/app/domain/catalog"
	"github.com/egov-platform/citizen-services/internal/app/domain/request"
)

// Rule assigns an initial status when the service name contains any of the
// listed substrings. Matching is case-sensitive; rules are evaluated in
// order, first match wins.
type Rule struct {
	Status   request.Status `yaml:"status"`
	Contains []string       `yaml:"contains"`
}

// Classifier derives the initial status of a new request. A service with a
// non-empty category is resolved through the category table first; name
// matching is the fallback for uncategorized reference data.
type Classifier struct {
	categories map[string]request.Status
	rules      []Rule
}

// Service categories recognized by the default table.
const (
	CategoryScheduledVisit  = "scheduled_visit"
	CategoryInstantIssuance = "instant_issuance"
	CategoryReview          = "review"
)

// DefaultClassifier returns the built-in table. The rule order encodes the
// documented precedence: scheduling keywords win over issuance keywords.
func DefaultClassifier() *Classifier {
	return &Classifier{
		categories: map[string]request.Status{
			CategoryScheduledVisit:  request.StatusUpcoming,
			CategoryInstantIssuance: request.StatusApproved,
			CategoryReview:          request.StatusPending,
		},
		rules: []Rule{
			{Status: request.StatusUpcoming, Contains: []string{"Appointment", "Vaccination", "Hospital"}},
			{Status: request.StatusApproved, Contains: []string{"Fee", "Passport", "License", "National ID"}},
		},
	}
}

type classifierFile struct {
	Categories map[string]request.Status `yaml:"categories"`
	Rules      []Rule                    `yaml:"rules"`
}

// LoadClassifier reads a YAML rule file. Omitted sections fall back to the
// defaults.
func LoadClassifier(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classification rules: %w", err)
	}

	var file classifierFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse classification rules: %w", err)
	}

	c := DefaultClassifier()
	if len(file.Categories) > 0 {
		c.categories = file.Categories
	}
	if len(file.Rules) > 0 {
		c.rules = file.Rules
	}

	for category, status := range c.categories {
		if !status.Valid() {
			return nil, fmt.Errorf("category %q maps to unknown status %q", category, status)
		}
	}
	for _, rule := range c.rules {
		if !rule.Status.Valid() {
			return nil, fmt.Errorf("rule %v has unknown status %q", rule.Contains, rule.Status)
		}
	}
	return c, nil
}

// Classify returns the initial status for a request against the service.
func (c *Classifier) Classify(svc catalog.Service) request.Status {
	if svc.Category != "" {
		if status, ok := c.categories[svc.Category]; ok {
			return status
		}
	}
	for _, rule := range c.rules {
		for _, substring := range rule.Contains {
			if strings.Contains(svc.Name, substring) {
				return rule.Status
			}
		}
	}
	return request.StatusPending
}

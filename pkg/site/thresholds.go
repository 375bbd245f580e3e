// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package site

import (
	"fmt"
)

// Thresholds are the minimum audit scores an improved artifact must reach.
type Thresholds struct {
	SEOMin           float64 `json:"seo_min"`
	AccessibilityMin float64 `json:"accessibility_min"`
	PerformanceMin   float64 `json:"performance_min"`
	OverallMin       float64 `json:"overall_min"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{SEOMin: 70, AccessibilityMin: 80, PerformanceMin: 75, OverallMin: 75}
}

func (t *Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"seo_min":           t.SEOMin,
		"accessibility_min": t.AccessibilityMin,
		"performance_min":   t.PerformanceMin,
		"overall_min":       t.OverallMin,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %g", name, v)
		}
	}
	return nil
}

func (t Thresholds) min(category string) float64 {
	switch category {
	case CategorySEO:
		return t.SEOMin
	case CategoryAccessibility:
		return t.AccessibilityMin
	case CategoryPerformance:
		return t.PerformanceMin
	default:
		return t.OverallMin
	}
}

// ThresholdOverrides replaces some fields of a base Thresholds. A nil field
// keeps the base value; an explicit 0 disables that category's check.
type ThresholdOverrides struct {
	SEOMin           *float64 `json:"seo_min,omitempty" yaml:"seo_min,omitempty"`
	AccessibilityMin *float64 `json:"accessibility_min,omitempty" yaml:"accessibility_min,omitempty"`
	PerformanceMin   *float64 `json:"performance_min,omitempty" yaml:"performance_min,omitempty"`
	OverallMin       *float64 `json:"overall_min,omitempty" yaml:"overall_min,omitempty"`
}

// Apply returns base with the set fields of o replacing its own.
func (o *ThresholdOverrides) Apply(base Thresholds) Thresholds {
	if o == nil {
		return base
	}
	for _, f := range []struct {
		v   *float64
		dst *float64
	}{
		{o.SEOMin, &base.SEOMin},
		{o.AccessibilityMin, &base.AccessibilityMin},
		{o.PerformanceMin, &base.PerformanceMin},
		{o.OverallMin, &base.OverallMin},
	} {
		if f.v != nil {
			*f.dst = *f.v
		}
	}
	return base
}

func (o *ThresholdOverrides) Validate() error {
	if o == nil {
		return nil
	}
	// Set fields are checked against a base that is itself valid.
	t := o.Apply(DefaultThresholds())
	return t.Validate()
}

var categories = []string{CategorySEO, CategoryAccessibility, CategoryPerformance, CategoryOverall}

// Failing returns the categories of report scoring below their threshold,
// in a fixed order.
func (t Thresholds) Failing(report *AuditReport) []string {
	var failing []string
	for _, c := range categories {
		if report.Score(c) < t.min(c) {
			failing = append(failing, c)
		}
	}
	return failing
}

// Meets reports whether every category reaches its threshold.
func (t Thresholds) Meets(report *AuditReport) bool {
	return len(t.Failing(report)) == 0
}

// Instructions turns the failing categories of report into modification
// instructions for the next regeneration. Issues of a failing category are
// listed first; a category without issues gets a score target.
func (t Thresholds) Instructions(report *AuditReport, failing []string) []string {
	var out []string
	for _, c := range failing {
		found := false
		for _, issue := range report.Issues {
			if issue.Category != c {
				continue
			}
			found = true
			out = append(out, fmt.Sprintf("Fix %s issue: %s", c, issue.Message))
		}
		if !found {
			out = append(out, fmt.Sprintf("Improve %s score from %.0f to at least %.0f", c, report.Score(c), t.min(c)))
		}
	}
	return out
}

package faq

import (
	"regexp"
	"slices"
	"strings"

	"github.com/Epistemic-Technology/vetrecords/models"
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// IsISODate reports whether s starts with a YYYY-MM-DD date.
func IsISODate(s string) bool {
	return isoDate.MatchString(s)
}

// Matches reports whether d can answer the rule's question.
func (r Rule) Matches(d models.CategorizedDate) bool {
	if !slices.Contains(r.Categories, d.Category) {
		return false
	}
	if len(r.Needles) == 0 {
		return true
	}
	specific := strings.ToLower(d.SpecificType)
	for _, n := range r.Needles {
		if strings.Contains(specific, n) {
			return true
		}
	}
	return false
}

// Latest returns the matching date with the greatest ISO value.
// The first of several equal dates wins.
func (r Rule) Latest(dates []models.CategorizedDate) (models.CategorizedDate, bool) {
	var best models.CategorizedDate
	found := false
	for _, d := range dates {
		if !IsISODate(d.Date) || !r.Matches(d) {
			continue
		}
		if !found || d.Date > best.Date {
			best = d
			found = true
		}
	}
	return best, found
}

// Derive fills every FAQ entry from dates. Entries with no matching date stay null.
func Derive(dates []models.CategorizedDate) models.FAQs {
	var faqs models.FAQs
	for _, r := range rules {
		d, ok := r.Latest(dates)
		if !ok {
			continue
		}
		date, source := d.Date, d.Source
		*r.field(&faqs) = models.FAQEntry{Date: &date, Source: &source}
	}
	return faqs
}

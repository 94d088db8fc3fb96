package engine

import "strings"

// Rule maps a case-insensitive title keyword to a classification tag.
type Rule struct {
	Keyword string
	Tag     string
}

// Classifier tags raw events whose titles contain a configured keyword.
// Rules are tested in the order given; the first match wins, so a title can
// never receive two tags. Rule order is fixed at construction.
type Classifier struct {
	rules []Rule
}

// NewClassifier compiles the rule list, lowercasing keywords once. Rules
// with an empty keyword are ignored.
func NewClassifier(rules []Rule) *Classifier {
	c := &Classifier{}
	for _, r := range rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if kw == "" {
			continue
		}
		c.rules = append(c.rules, Rule{Keyword: kw, Tag: r.Tag})
	}
	return c
}

// Classify tests rec's title against the rules. The normalized form supplies
// the date and hours carried on the result. The second return is false when
// no rule matches; unmatched records are simply not emitted.
func (c *Classifier) Classify(rec RawEvent, norm NormalizedEvent) (ClassifiedEvent, bool) {
	title := strings.ToLower(rec.Title)
	for _, r := range c.rules {
		if strings.Contains(title, r.Keyword) {
			return ClassifiedEvent{
				Tag:       r.Tag,
				Date:      norm.Date,
				StartHour: norm.StartHour,
				EndHour:   norm.EndHour,
				Title:     rec.Title,
				Source:    rec.Source,
			}, true
		}
	}
	return ClassifiedEvent{}, false
}

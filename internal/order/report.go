package order

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/parse"
)

// BuildReport joins per-segment results in the order given. Insertions and
// modifications go to Items and questions to Questions, both without allergy
// information. Unrecognised segments are listed for diagnostics and slot
// failures are collected into Failures.
//
// The returned text is the [Flatten] rendering of items followed by
// questions, allergies included, then one {"Unrecognized": segment} line per
// unrecognised segment. It is non-empty whenever any segment was found, so a
// question naming no menu item ("what are your hours") still reaches the
// response text.
func BuildReport(results []SegmentResult) (*OrderReport, string) {
	report := &OrderReport{
		Items:        []LineItem{},
		Questions:    []LineItem{},
		Unrecognized: []string{},
	}
	var items, questions []LineItem

	for _, r := range results {
		report.Failures = append(report.Failures, r.Failures...)
		switch {
		case errors.Is(r.Err, ErrUnrecognizedItem), r.Item == nil:
			report.Unrecognized = append(report.Unrecognized, r.Segment)
		case r.Action == parse.Question:
			questions = append(questions, *r.Item)
			report.Questions = append(report.Questions, r.Item.withoutAllergies())
		default:
			items = append(items, *r.Item)
			report.Items = append(report.Items, r.Item.withoutAllergies())
		}
	}
	report.Partial = len(report.Failures) > 0

	var b strings.Builder
	b.WriteString(Flatten(append(items, questions...)))
	for _, seg := range report.Unrecognized {
		line, err := json.Marshal(struct{ Unrecognized string }{seg})
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.Write(line)
	}
	return report, b.String()
}

// Flatten renders items one per line, each as its kind-keyed JSON object.
func Flatten(items []LineItem) string {
	var b strings.Builder
	for i, it := range items {
		line, err := json.Marshal(it)
		if err != nil {
			continue
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.Write(line)
	}
	return b.String()
}

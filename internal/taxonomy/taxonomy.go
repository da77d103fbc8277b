// Package taxonomy maps raw feed incident-type strings to the fixed crime
// categories. The mapping is data, not logic: it lives in categories.yaml so
// it can be audited and extended without touching code.
package taxonomy

import (
	_ "embed"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/homescout/crimescope/internal/model"
)

//go:embed categories.yaml
var rawTable []byte

// Table is a closed classification table. Unrecognized types classify as
// "other", never as an error.
type Table struct {
	exact map[string]model.Category
	// substring labels in check order, longest first so "THEFT FROM AUTO"
	// wins over "THEFT"
	labels []labeledCategory
}

type labeledCategory struct {
	label    string
	category model.Category
}

var (
	defaultTable *Table
	defaultOnce  sync.Once
)

// Default returns the table parsed from the embedded categories.yaml.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(rawTable)
		if err != nil {
			// The embedded table is validated by tests; a parse failure here
			// is a build defect, not a runtime condition.
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

// Parse builds a Table from YAML of the form category -> [labels].
func Parse(data []byte) (*Table, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	t := &Table{exact: make(map[string]model.Category)}
	for cat, labels := range raw {
		category := model.Category(cat)
		for _, label := range labels {
			norm := normalize(label)
			t.exact[norm] = category
			t.labels = append(t.labels, labeledCategory{label: norm, category: category})
		}
	}

	// Longest label first for substring matching.
	sort.Slice(t.labels, func(i, j int) bool {
		if len(t.labels[i].label) != len(t.labels[j].label) {
			return len(t.labels[i].label) > len(t.labels[j].label)
		}
		return t.labels[i].label < t.labels[j].label
	})
	return t, nil
}

// Classify returns the category for a raw incident-type string.
func (t *Table) Classify(rawType string) model.Category {
	norm := normalize(rawType)
	if norm == "" {
		return model.CategoryOther
	}
	if cat, ok := t.exact[norm]; ok {
		return cat
	}
	for _, lc := range t.labels {
		if strings.Contains(norm, lc.label) {
			return lc.category
		}
	}
	return model.CategoryOther
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

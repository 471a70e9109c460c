package profile

import (
	"time"

	"github.com/OFFIS-RIT/tabula/backend/pkg/dataset"

	"github.com/araddon/dateparse"
)

// rule inspects a column and reports the kind it assigns, if any.
type rule struct {
	name  string
	apply func(c *dataset.Column) (string, bool)
}

// rules are evaluated in order; the first one that matches decides.
var rules = []rule{
	{"numeric", func(c *dataset.Column) (string, bool) {
		return KindNumber, c.Kind.IsNumeric()
	}},
	{"boolean", func(c *dataset.Column) (string, bool) {
		return KindBoolean, c.Kind == dataset.KindBool
	}},
	{"text", func(c *dataset.Column) (string, bool) {
		if c.Kind != dataset.KindText {
			return "", false
		}
		return classifyText(c), true
	}},
	{"categorical", func(c *dataset.Column) (string, bool) {
		return KindCategory, c.Kind == dataset.KindCategorical
	}},
	{"timestamp", func(c *dataset.Column) (string, bool) {
		return KindDate, c.Kind == dataset.KindTimestamp
	}},
}

func classify(c *dataset.Column) string {
	for _, r := range rules {
		if kind, ok := r.apply(c); ok {
			return kind
		}
	}
	return c.DeclaredType()
}

func classifyText(c *dataset.Column) string {
	if parsesAsDates(c) {
		return KindDate
	}
	if len(c.Values) == 0 {
		return KindCategory
	}
	// Missing values do not count as a distinct value here.
	distinct, _ := distinctValues(c)
	if float64(len(distinct))/float64(len(c.Values)) < CategoryRatio {
		return KindCategory
	}
	return KindString
}

// parsesAsDates reports whether every present value is a timestamp or a
// string that parses as one. Columns without any present value are not
// dates, unlike pandas to_datetime, which accepts them vacuously.
func parsesAsDates(c *dataset.Column) bool {
	seen := false
	for _, v := range c.Values {
		if isMissing(v) {
			continue
		}
		switch t := v.(type) {
		case time.Time:
		case string:
			if _, err := parseDate(t); err != nil {
				return false
			}
		default:
			return false
		}
		seen = true
	}
	return seen
}

func parseDate(s string) (time.Time, error) {
	return dateparse.ParseIn(s, time.UTC)
}

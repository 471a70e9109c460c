package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/pkg/dataset"

	"github.com/invopop/jsonschema"
)

// Value is a statistic that serializes as a plain JSON number or string, or
// as null when it could not be computed.
type Value struct {
	v any
}

// NewValue wraps v, converting timestamps to their display form.
func NewValue(v any) *Value {
	return &Value{v: jsonValue(v)}
}

// Interface returns the wrapped value; nil means null.
func (v *Value) Interface() any {
	if v == nil {
		return nil
	}
	return v.v
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.v)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &v.v)
}

func (Value) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Description: "number or date string, null when unavailable"}
}

func isMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	}
	return false
}

// jsonValue maps a cell onto something encoding/json renders as a native
// JSON scalar.
func jsonValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return dataset.FormatTime(t)
	case complex128:
		return strconv.FormatComplex(t, 'g', -1, 128)
	case float64:
		if math.IsInf(t, 0) || math.IsNaN(t) {
			return nil
		}
	}
	return v
}

type (
	timeKey   int64
	opaqueKey string
)

// distinctKey maps a value onto a comparable map key. Nested values are
// compared by their JSON encoding.
func distinctKey(v any) any {
	switch t := v.(type) {
	case int64, float64, complex128, bool, string:
		return t
	case time.Time:
		return timeKey(t.UnixNano())
	}
	b, err := json.Marshal(v)
	if err != nil {
		return opaqueKey(fmt.Sprintf("%#v", v))
	}
	return opaqueKey(b)
}

// distinctValues returns the distinct present values in first-seen order
// and whether any value is missing.
func distinctValues(c *dataset.Column) ([]any, bool) {
	seen := make(map[any]struct{})
	var (
		out     []any
		missing bool
	)
	for _, v := range c.Values {
		if isMissing(v) {
			missing = true
			continue
		}
		k := distinctKey(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out, missing
}

// sample draws min(n, len(values)) values without replacement using a
// generator seeded with SampleSeed.
func sample(values []any, n int) []any {
	k := min(n, len(values))
	pool := make([]any, len(values))
	copy(pool, values)

	rng := rand.New(rand.NewPCG(SampleSeed, SampleSeed))
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	out := make([]any, k)
	for i := range out {
		out[i] = jsonValue(pool[i])
	}
	return out
}

// numericStats returns sample standard deviation, minimum and maximum.
// Integer columns report integers, everything else float64; complex values
// are compared by magnitude.
func numericStats(c *dataset.Column) (std, lo, hi *Value) {
	var (
		xs         []float64
		iMin, iMax int64
		ints       int
	)
	for _, v := range c.Values {
		switch t := v.(type) {
		case int64:
			if ints == 0 || t < iMin {
				iMin = t
			}
			if ints == 0 || t > iMax {
				iMax = t
			}
			ints++
			xs = append(xs, float64(t))
		case float64:
			if !math.IsNaN(t) {
				xs = append(xs, t)
			}
		case complex128:
			xs = append(xs, cmplx.Abs(t))
		}
	}

	if len(xs) == 0 {
		return &Value{}, &Value{}, &Value{}
	}

	fMin, fMax := xs[0], xs[0]
	for _, x := range xs[1:] {
		fMin = math.Min(fMin, x)
		fMax = math.Max(fMax, x)
	}

	s := &Value{}
	if sd, ok := stdDev(xs); ok {
		if c.Kind == dataset.KindInt {
			s = NewValue(int64(sd))
		} else {
			s = NewValue(sd)
		}
	}

	if c.Kind == dataset.KindInt && ints == len(xs) {
		return s, NewValue(iMin), NewValue(iMax)
	}
	return s, NewValue(fMin), NewValue(fMax)
}

func stdDev(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(len(xs)-1))
	if math.IsNaN(sd) || math.IsInf(sd, 0) {
		return 0, false
	}
	return sd, true
}

// dateRange returns the earliest and latest value of a date column.
// Native timestamps and columns made only of strings are compared directly;
// anything mixed is re-parsed with unparseable entries dropped.
func dateRange(c *dataset.Column) (lo, hi *Value) {
	var (
		strs  []string
		times []time.Time
		mixed bool
	)
	for _, v := range c.Values {
		switch t := v.(type) {
		case nil:
		case string:
			strs = append(strs, t)
		case time.Time:
			times = append(times, t)
		default:
			mixed = true
		}
	}
	if len(strs) > 0 && len(times) > 0 {
		mixed = true
	}

	switch {
	case !mixed && len(strs) > 0:
		sMin, sMax := strs[0], strs[0]
		for _, s := range strs[1:] {
			sMin = min(sMin, s)
			sMax = max(sMax, s)
		}
		return NewValue(sMin), NewValue(sMax)
	case !mixed:
		return timeRange(times)
	}

	coerced := make([]time.Time, 0, len(c.Values))
	for _, v := range c.Values {
		switch t := v.(type) {
		case time.Time:
			coerced = append(coerced, t)
		case string:
			if ts, err := parseDate(t); err == nil {
				coerced = append(coerced, ts)
			}
		}
	}
	return timeRange(coerced)
}

func timeRange(times []time.Time) (lo, hi *Value) {
	if len(times) == 0 {
		return &Value{}, &Value{}
	}
	tMin, tMax := times[0], times[0]
	for _, t := range times[1:] {
		if t.Before(tMin) {
			tMin = t
		}
		if t.After(tMax) {
			tMax = t
		}
	}
	return NewValue(tMin), NewValue(tMax)
}

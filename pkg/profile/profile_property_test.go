package profile

import (
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/tabula/backend/pkg/dataset"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_IntegerColumns(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("integer columns are numbers with ordered integer bounds", prop.ForAll(
		func(xs []int64, n int) bool {
			values := make([]any, len(xs))
			distinct := make(map[int64]struct{})
			for i, x := range xs {
				values[i] = x
				distinct[x] = struct{}{}
			}
			c := dataset.NewColumn("n", dataset.KindInt, values)
			p := Columns(&dataset.Dataset{Columns: []*dataset.Column{c}}, n)[0].Properties

			if p.Dtype != KindNumber || p.Std == nil || p.Min == nil || p.Max == nil {
				return false
			}
			if len(xs) == 0 {
				return p.Min.Interface() == nil && p.Max.Interface() == nil
			}
			lo, ok1 := p.Min.Interface().(int64)
			hi, ok2 := p.Max.Interface().(int64)
			if !ok1 || !ok2 || lo > hi {
				return false
			}

			want := n
			if want <= 0 {
				want = DefaultSamples
			}
			return len(p.Samples) == min(want, len(distinct)) && p.NumUniqueValues == len(distinct)
		},
		gen.SliceOf(gen.Int64Range(-1000, 1000)),
		gen.IntRange(-1, 10),
	))

	properties.TestingRun(t)
}

func TestProperty_TextColumns(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("text columns get a text kind and bounded deterministic samples", prop.ForAll(
		func(xs []string, n int) bool {
			values := make([]any, len(xs))
			distinct := make(map[string]struct{})
			for i, x := range xs {
				values[i] = x
				distinct[x] = struct{}{}
			}
			ds := &dataset.Dataset{Columns: []*dataset.Column{
				dataset.NewColumn("a", dataset.KindText, values),
				dataset.NewColumn("b", dataset.KindBool, make([]any, len(xs))),
			}}

			first := Columns(ds, n)
			second := Columns(ds, n)
			if len(first) != 2 || first[0].Column != "a" || first[1].Column != "b" {
				return false
			}

			p := first[0].Properties
			switch p.Dtype {
			case KindDate, KindCategory, KindString:
			default:
				return false
			}
			if p.Std != nil {
				return false
			}
			return len(p.Samples) <= min(n, len(distinct)) &&
				reflect.DeepEqual(first[0].Properties.Samples, second[0].Properties.Samples)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}

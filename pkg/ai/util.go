package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

func stripDuplicateLeadingBrace(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		rest := strings.TrimSpace(s[1:])
		if strings.HasPrefix(rest, "{") {
			return rest
		}
	}
	return s
}

// stripCodeFence removes a surrounding markdown code fence such as
// ```json ... ``` that models add despite being told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// GenerateSchema creates a JSON Schema from the given Go type.
// It uses reflection to inspect the type structure and generates
// a schema suitable for use with AI structured output.
func GenerateSchema(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	v := reflect.New(t).Interface()
	return reflector.Reflect(v)
}

// UnmarshalFlexible attempts to unmarshal JSON into the target with multiple fallback strategies.
// It first tries standard JSON unmarshaling, then handles double-encoded JSON strings,
// then strips markdown code fences, and finally attempts to repair malformed JSON before parsing.
//
// This is useful for parsing AI-generated JSON which may be malformed or wrapped in strings.
//
// Example:
//
//	var result MyStruct
//	// All of these inputs would work:
//	UnmarshalFlexible(`{"name": "test"}`, &result)           // standard JSON
//	UnmarshalFlexible(`"{\"name\": \"test\"}"`, &result)     // double-encoded
//	UnmarshalFlexible("```json\n{\"name\": \"test\"}\n```", &result) // fenced
//	UnmarshalFlexible(`{name: "test"}`, &result)             // malformed (repaired)
func UnmarshalFlexible(input string, out any) error {
	input = strings.TrimSpace(input)

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if err := json.Unmarshal([]byte(asString), out); err == nil {
			return nil
		}
		input = asString
	}

	if unfenced := stripCodeFence(input); unfenced != input {
		if err := json.Unmarshal([]byte(unfenced), out); err == nil {
			return nil
		}
		input = unfenced
	}

	input = stripDuplicateLeadingBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w (input: %s)", err, input)
	}

	if err := json.Unmarshal([]byte(repaired), out); err == nil {
		return nil
	}

	return fmt.Errorf(
		"unmarshal failed after repair: input=%s repaired=%s",
		input, repaired,
	)
}

// TokensPerSecond returns the throughput for the given totals rounded to two
// decimals, or 0 when no time was recorded.
func TokensPerSecond(totalTokens int, durationMs int64) float32 {
	if durationMs <= 0 {
		return 0
	}
	tps := (float64(totalTokens) * 1000.0) / float64(durationMs)
	return float32(math.Round(tps*100) / 100)
}

// AddMetrics accumulates m into dst and refreshes the throughput figure.
func AddMetrics(dst *ModelMetrics, m ModelMetrics) {
	dst.InputTokens += m.InputTokens
	dst.OutputTokens += m.OutputTokens
	dst.TotalTokens += m.TotalTokens
	dst.DurationMs += m.DurationMs
	dst.TokenPerSecond = TokensPerSecond(dst.TotalTokens, dst.DurationMs)
}

// FitDimensions truncates or zero-pads vec to exactly dim entries.
func FitDimensions(vec []float32, dim int) []float32 {
	if dim <= 0 || len(vec) == dim {
		return vec
	}
	if len(vec) > dim {
		return vec[:dim]
	}
	padded := make([]float32, dim)
	copy(padded, vec)
	return padded
}

// Package codec normalizes, renders and checks answer values by question type.
//
// Answers arrive as decoded JSON (strings, float64, bool, []interface{},
// map[string]interface{}) or as values produced by Normalize. Every function
// here is total: malformed values are passed through or stringified, never
// rejected.
package codec

import (
	"encoding/json"
	"fmt"
	"html"
	"reflect"
	"strconv"
	"strings"

	"discovery/internal/model"
)

// LineBreak is the display-layer line break marker used in rendered answers
const LineBreak = "<br>"

type typeCodec struct {
	normalize func(q *model.Question, v interface{}) interface{}
	render    func(q *model.Question, v interface{}) string
	validate  func(q *model.Question, v interface{}) []string
}

// codecs is filled in init because the yes-no codec recurses through Normalize/Render.
var codecs map[model.QuestionType]typeCodec

func init() {
	codecs = map[model.QuestionType]typeCodec{
		model.QuestionTypeSingleChoice:    {normalizeSingleChoice, renderSingleChoice, nil},
		model.QuestionTypeMultiChoice:     {normalizeMultiChoice, renderMultiChoice, nil},
		model.QuestionTypeYesNoFollowup:   {normalizeYesNo, renderYesNo, validateYesNo},
		model.QuestionTypeScale:           {normalizeInteger, renderPlain, validateScale},
		model.QuestionTypeNumber:          {normalizeNumber, renderPlain, validateNumber},
		model.QuestionTypeText:            {normalizeText, renderText, validateText},
		model.QuestionTypeDate:            {normalizeDate, renderPlain, validateDate},
		model.QuestionTypePercentageSplit: {normalizeSplit, renderSplit, validateSplit},
		model.QuestionTypePriorityRanking: {normalizeRankingAnswer, renderRanking, nil},
	}
}

// Normalize converts an incoming answer to the canonical storage shape for q
func Normalize(q *model.Question, v interface{}) interface{} {
	if q == nil || v == nil {
		return v
	}
	c, ok := codecs[q.Type]
	if !ok || c.normalize == nil {
		return v
	}
	return c.normalize(q, v)
}

// Render produces an HTML-safe human rendering of an answer. It never panics.
func Render(q *model.Question, v interface{}) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = html.EscapeString(stringify(v))
		}
	}()
	if v == nil {
		return ""
	}
	if q == nil {
		return renderPlain(nil, v)
	}
	c, ok := codecs[q.Type]
	if !ok || c.render == nil {
		return renderPlain(q, v)
	}
	return c.render(q, v)
}

// Validate returns soft validation hints for an answer. Hints never block completion.
func Validate(q *model.Question, v interface{}) []string {
	if q == nil || IsEmpty(v) {
		return nil
	}
	c, ok := codecs[q.Type]
	if !ok || c.validate == nil {
		return nil
	}
	return c.validate(q, v)
}

// IsEmpty applies the required-question emptiness rules: nil, empty
// collections and blank strings are missing; false and 0 are answers.
func IsEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Single choice

func normalizeSingleChoice(_ *model.Question, v interface{}) interface{} {
	if s, ok := v.(string); ok {
		return s
	}
	return stringify(v)
}

func renderSingleChoice(q *model.Question, v interface{}) string {
	token := stringify(v)
	if label, ok := q.OptionLabel(token); ok {
		return html.EscapeString(label)
	}
	return html.EscapeString(token)
}

// Multi choice

func normalizeMultiChoice(_ *model.Question, v interface{}) interface{} {
	values, ok := toStringSlice(v)
	if !ok {
		if s, isStr := v.(string); isStr {
			if strings.TrimSpace(s) == "" {
				return []string{}
			}
			return []string{s}
		}
		return v
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, s := range values {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func renderMultiChoice(q *model.Question, v interface{}) string {
	values, ok := toStringSlice(v)
	if !ok {
		return html.EscapeString(stringify(v))
	}
	labels := make([]string, len(values))
	for i, token := range values {
		if label, found := q.OptionLabel(token); found {
			labels[i] = html.EscapeString(label)
		} else {
			labels[i] = html.EscapeString(token)
		}
	}
	return strings.Join(labels, ", ")
}

// Yes/no with follow-up

func normalizeYesNo(q *model.Question, v interface{}) interface{} {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		if b, ok := parseYesNo(val); ok {
			return b
		}
		return val
	case map[string]interface{}:
		b, ok := truthy(val["value"])
		if !ok {
			return val
		}
		if !b {
			return false
		}
		out := map[string]interface{}{"value": true}
		if f, present := val["followup"]; present && f != nil {
			out["followup"] = Normalize(q.Followup, f)
		}
		return out
	}
	return v
}

func renderYesNo(q *model.Question, v interface{}) string {
	switch val := v.(type) {
	case bool:
		return yesNo(val)
	case map[string]interface{}:
		b, _ := truthy(val["value"])
		out := yesNo(b)
		if f, present := val["followup"]; present && !IsEmpty(f) {
			var rendered string
			if q.Followup != nil {
				rendered = Render(q.Followup, f)
			} else {
				rendered = html.EscapeString(stringify(f))
			}
			out += " - " + rendered
		}
		return out
	}
	if b, ok := truthy(v); ok {
		return yesNo(b)
	}
	return html.EscapeString(stringify(v))
}

func validateYesNo(q *model.Question, v interface{}) []string {
	m, ok := v.(map[string]interface{})
	if !ok || q.Followup == nil {
		return nil
	}
	return Validate(q.Followup, m["followup"])
}

// FollowupAnswer returns the nested answer when the yes-no answer is true
func FollowupAnswer(v interface{}) (interface{}, bool) {
	switch val := v.(type) {
	case bool:
		return nil, val
	case map[string]interface{}:
		b, _ := truthy(val["value"])
		return val["followup"], b
	}
	return nil, false
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Numbers

func normalizeInteger(_ *model.Question, v interface{}) interface{} {
	if n, ok := toInt(v); ok {
		return n
	}
	return v
}

func normalizeNumber(q *model.Question, v interface{}) interface{} {
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	return normalizeInteger(q, v)
}

func validateScale(q *model.Question, v interface{}) []string {
	n, ok := toInt(v)
	if !ok {
		return []string{"Please choose a value on the scale"}
	}
	lo, hi := q.Bounds()
	if n < lo || n > hi {
		return []string{fmt.Sprintf("Value must be between %d and %d", lo, hi)}
	}
	return nil
}

func validateNumber(_ *model.Question, v interface{}) []string {
	if _, ok := toInt(v); !ok {
		return []string{"Please enter a whole number"}
	}
	return nil
}

// Text and dates

func normalizeText(_ *model.Question, v interface{}) interface{} {
	if s, ok := v.(string); ok {
		return s
	}
	return stringify(v)
}

func renderText(_ *model.Question, v interface{}) string {
	s := html.EscapeString(stringify(v))
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", LineBreak)
}

func validateText(q *model.Question, v interface{}) []string {
	if q.MaxLength <= 0 {
		return nil
	}
	if n := len([]rune(stringify(v))); n > q.MaxLength {
		return []string{fmt.Sprintf("Answer is %d characters; the limit is %d", n, q.MaxLength)}
	}
	return nil
}

func normalizeDate(_ *model.Question, v interface{}) interface{} {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

func validateDate(_ *model.Question, v interface{}) []string {
	s, ok := v.(string)
	if !ok || !isISODate(s) {
		return []string{"Please enter a date as YYYY-MM-DD"}
	}
	return nil
}

func renderPlain(_ *model.Question, v interface{}) string {
	return html.EscapeString(stringify(v))
}

// Conversion helpers

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int(n), true
	case float32:
		if n != float32(int64(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

func toStringSlice(v interface{}) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return val, true
	case []interface{}:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = stringify(item)
		}
		return out, true
	}
	return nil, false
}

func truthy(v interface{}) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		return parseYesNo(val)
	}
	return false, false
}

func parseYesNo(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "y":
		return true, true
	case "no", "false", "n":
		return false, true
	}
	return false, false
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	}
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return fmt.Sprint(v)
}

// filepath: internal/validate/validate.go
// Package validate checks action payloads against the grid's validation
// rules. Failures come back as a field-keyed error map rather than an error
// value, so the dispatcher can return them to the client in one response.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"sqlgrid/internal/grid"
)

// Errors maps field names to their first failing rule's message.
type Errors map[string]string

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Row validates payload values against the rules. When partial is true
// (updates), rules only apply to fields present in the payload; required
// rules still reject fields that are present but empty.
func Row(rules []grid.Rule, values map[string]interface{}, partial bool) Errors {
	errs := Errors{}
	for _, rule := range rules {
		if _, failed := errs[rule.Field]; failed {
			continue // report the first failure per field
		}
		val, present := values[rule.Field]
		if !present && (partial || rule.Kind != "required") {
			continue
		}
		if msg := check(rule, val, present); msg != "" {
			errs[rule.Field] = msg
		}
	}
	return errs
}

func check(rule grid.Rule, val interface{}, present bool) string {
	str := asString(val)

	switch rule.Kind {
	case "required":
		if !present || strings.TrimSpace(str) == "" {
			return message(rule, "this field is required")
		}
	case "email":
		if str != "" && !emailRegex.MatchString(str) {
			return message(rule, "must be a valid email address")
		}
	case "integer":
		if str != "" {
			if _, err := strconv.ParseInt(str, 10, 64); err != nil {
				return message(rule, "must be an integer")
			}
		}
	case "numeric":
		if str != "" {
			if _, err := strconv.ParseFloat(str, 64); err != nil {
				return message(rule, "must be a number")
			}
		}
	case "pattern":
		re, err := regexp.Compile(rule.Param)
		if err != nil {
			return "invalid validation pattern"
		}
		if str != "" && !re.MatchString(str) {
			return message(rule, "has an invalid format")
		}
	case "minlen":
		n, _ := strconv.Atoi(rule.Param)
		if utf8.RuneCountInString(str) < n {
			return message(rule, fmt.Sprintf("must be at least %d characters", n))
		}
	case "maxlen":
		n, _ := strconv.Atoi(rule.Param)
		if utf8.RuneCountInString(str) > n {
			return message(rule, fmt.Sprintf("must be at most %d characters", n))
		}
	case "min":
		limit, _ := strconv.ParseFloat(rule.Param, 64)
		if f, ok := asFloat(val); ok && f < limit {
			return message(rule, fmt.Sprintf("must be at least %s", rule.Param))
		}
	case "max":
		limit, _ := strconv.ParseFloat(rule.Param, 64)
		if f, ok := asFloat(val); ok && f > limit {
			return message(rule, fmt.Sprintf("must be at most %s", rule.Param))
		}
	}
	// "unique" needs a database round-trip and is checked by the dispatcher
	return ""
}

func message(rule grid.Rule, fallback string) string {
	if rule.Message != "" {
		return rule.Message
	}
	return fallback
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case int:
		return float64(f), true
	case int64:
		return float64(f), true
	case string:
		parsed, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

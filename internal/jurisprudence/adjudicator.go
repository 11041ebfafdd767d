package jurisprudence

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxRecursionDepth = 20

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// Adjudicator validates values against field signatures, resolving any
// nested %% contract references against reg.
type Adjudicator struct {
	reg *Registry
}

// NewAdjudicator returns an Adjudicator backed by reg. reg may be nil, in
// which case nested contract types are always reported unknown.
func NewAdjudicator(reg *Registry) *Adjudicator {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Adjudicator{reg: reg}
}

// AdjudicateValue validates value against field, recursing into list
// elements or nested contract fields as needed.
func (a *Adjudicator) AdjudicateValue(value interface{}, field Field) error {
	return a.adjudicate(value, field, field.Name, 0)
}

func (a *Adjudicator) adjudicate(value interface{}, field Field, context string, depth int) error {
	if depth > maxRecursionDepth {
		return fmt.Errorf("contract recursion depth exceeded validating %q", context)
	}

	if field.TypeName == "any" {
		return nil
	}

	if field.IsList {
		items, ok := value.([]interface{})
		if !ok {
			return fmt.Errorf("%s expects a list, got %T", context, value)
		}
		for i, item := range items {
			itemField := field
			itemField.IsList = false
			if err := a.adjudicate(item, itemField, fmt.Sprintf("%s[%d]", context, i), depth); err != nil {
				return err
			}
		}
		return nil
	}

	return a.adjudicateScalar(value, field, context, depth)
}

func (a *Adjudicator) adjudicateScalar(value interface{}, field Field, context string, depth int) error {
	t := field.TypeName
	c := field.Constraints

	switch t {
	case "str", "string", "text":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be a string", context)
		}
		if min, ok := intConstraint(c, "min"); ok && len(s) < min {
			return fmt.Errorf("%s is too short (min %d)", context, min)
		}
		if max, ok := intConstraint(c, "max"); ok && len(s) > max {
			return fmt.Errorf("%s is too long (max %d)", context, max)
		}
		if pattern, ok := c["pattern"].(string); ok {
			re, err := regexp.Compile(pattern)
			if err != nil || !re.MatchString(s) {
				display := s
				if strings.Contains(strings.ToLower(context), "secret") || strings.Contains(strings.ToLower(context), "key") {
					display = "***"
				}
				return fmt.Errorf("%s (%q) does not match pattern %q", context, display, pattern)
			}
		}
		return nil

	case "int", "integer":
		n, ok := asInt(value)
		if !ok {
			return fmt.Errorf("%s must be an integer", context)
		}
		if min, ok := intConstraint(c, "min"); ok && n < min {
			return fmt.Errorf("%s is too small (min %d)", context, min)
		}
		if max, ok := intConstraint(c, "max"); ok && n > max {
			return fmt.Errorf("%s is too large (max %d)", context, max)
		}
		return nil

	case "float", "number":
		f, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("%s must be a number", context)
		}
		if min, ok := c["min"]; ok {
			if minF, _ := asFloat(min); f < minF {
				return fmt.Errorf("%s is too small (min %v)", context, min)
			}
		}
		return nil

	case "bool", "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s must be a boolean", context)
		}
		return nil

	case "uuid":
		if _, err := uuid.Parse(fmt.Sprintf("%v", value)); err != nil {
			return fmt.Errorf("%s is not a valid UUID", context)
		}
		return nil

	case "email":
		s, ok := value.(string)
		if !ok || !emailRegex.MatchString(s) {
			return fmt.Errorf("%s is not a valid email address", context)
		}
		return nil

	case "enum":
		options, _ := c["options"].([]string)
		s := fmt.Sprintf("%v", value)
		for _, opt := range options {
			if opt == s {
				return nil
			}
		}
		return fmt.Errorf("%s is invalid; must be one of %v", context, options)

	case "ip", "ipv4", "ipv6":
		s, ok := value.(string)
		if !ok || net.ParseIP(s) == nil {
			return fmt.Errorf("%s is not a valid IP address", context)
		}
		return nil

	case "url":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s is not a valid URL", context)
		}
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s is not a valid URL", context)
		}
		return nil

	case "date", "datetime", "iso8601":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be a valid ISO-8601 date/time string", context)
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			if _, err2 := time.Parse("2006-01-02", s); err2 != nil {
				return fmt.Errorf("%s must be a valid ISO-8601 date/time string", context)
			}
		}
		return nil

	case "path":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be a path string", context)
		}
		isAbs := filepath.IsAbs(s)
		if want, ok := c["absolute"].(bool); ok && want && !isAbs {
			return fmt.Errorf("%s must be an absolute path", context)
		}
		if want, ok := c["relative"].(bool); ok && want && isAbs {
			return fmt.Errorf("%s must be a relative path", context)
		}
		return nil

	case "json_string":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be a string", context)
		}
		var js interface{}
		if err := json.Unmarshal([]byte(s), &js); err != nil {
			return fmt.Errorf("%s is not valid JSON", context)
		}
		return nil

	default:
		if a.reg.Has(t) {
			return a.adjudicateNested(value, t, context, depth)
		}
		return fmt.Errorf("unknown contract type %q", t)
	}
}

func (a *Adjudicator) adjudicateNested(value interface{}, contractName, context string, depth int) error {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s must be an object matching contract %q", context, contractName)
	}
	fields, err := a.reg.ResolvedFields(contractName)
	if err != nil {
		return err
	}
	for _, f := range fields {
		v, present := obj[f.Name]
		if !present {
			if f.Optional || f.Default != nil {
				continue
			}
			return fmt.Errorf("missing required field %q in %s (%s)", f.Name, context, contractName)
		}
		if err := a.adjudicate(v, f, fmt.Sprintf("%s.%s", context, f.Name), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func intConstraint(c map[string]interface{}, key string) (int, bool) {
	v, ok := c[key]
	if !ok {
		return 0, false
	}
	n, ok := asInt(v)
	return n, ok
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

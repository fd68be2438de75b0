// Package template implements {{name}} placeholder handling for phrase
// templates: extraction of variable names, substitution of collected values,
// and coercion of dictated values into their declared types.
//
// Substitution is forgiving on purpose. A placeholder whose name has no
// value stays in the text verbatim so a partially filled template remains
// readable, and malformed (unterminated) braces are left untouched rather
// than erroring mid-dictation.
package template

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/openlaudos/dictate/internal/registry"
)

// ErrCoercion is returned by [Coerce] when a dictated value cannot be parsed
// into the variable's declared type. The caller re-prompts for the same
// variable; this is never fatal.
var ErrCoercion = errors.New("template: coercion failure")

// placeholderRe matches {{name}} non-greedily. Names may not contain braces,
// so an unterminated "{{" never swallows a later placeholder.
var placeholderRe = regexp.MustCompile(`\{\{([^{}]+?)\}\}`)

// ExtractVariables returns every placeholder name in text, in order of
// appearance, duplicates preserved. Prompting walks this sequence; schema
// lookup deduplicates separately.
func ExtractVariables(text string) []string {
	matches := placeholderRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSpace(m[1]))
	}
	return names
}

// HasVariables reports whether text contains at least one {{name}} placeholder.
func HasVariables(text string) bool {
	return placeholderRe.MatchString(text)
}

// Substitute replaces every {{name}} whose name is present in values with the
// stringified value. Placeholders with no matching value are left verbatim.
func Substitute(text string, values map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(ph string) string {
		name := strings.TrimSpace(ph[2 : len(ph)-2])
		v, ok := values[name]
		if !ok {
			return ph
		}
		return fmt.Sprint(v)
	})
}

// dateLayouts are the accepted dictated date formats, day-first per pt-BR
// convention. Output is always dd/mm/yyyy.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}

// booleanWords maps accepted spoken affirmations and negations to the
// canonical report form.
var booleanWords = map[string]string{
	"sim": "sim", "yes": "sim", "true": "sim", "verdadeiro": "sim", "positivo": "sim",
	"nao": "não", "no": "não", "false": "não", "falso": "não", "negativo": "não",
}

// Coerce parses a dictated raw value according to spec's declared type and
// returns the canonical string form to substitute into the template. A
// parse failure returns an error wrapping [ErrCoercion] so the dispatcher
// re-prompts instead of advancing.
func Coerce(spec registry.VariableSpec, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	typ := spec.Type
	if typ == "" {
		typ = registry.VariableText
	}

	switch typ {
	case registry.VariableText:
		return raw, nil

	case registry.VariableNumber:
		n, err := parseNumber(raw)
		if err != nil {
			return "", fmt.Errorf("%w: variable %q: %q is not a number", ErrCoercion, spec.Name, raw)
		}
		if err := checkBounds(spec, n); err != nil {
			return "", err
		}
		return formatNumber(n), nil

	case registry.VariableChoice:
		want := registry.Normalize(raw)
		for _, c := range spec.Choices {
			if registry.Normalize(c) == want {
				return c, nil
			}
		}
		return "", fmt.Errorf("%w: variable %q: %q is not one of %v", ErrCoercion, spec.Name, raw, spec.Choices)

	case registry.VariableBoolean:
		if v, ok := booleanWords[registry.Normalize(raw)]; ok {
			return v, nil
		}
		return "", fmt.Errorf("%w: variable %q: %q is not a yes/no answer", ErrCoercion, spec.Name, raw)

	case registry.VariableDate:
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, raw); err == nil {
				return d.Format("02/01/2006"), nil
			}
		}
		return "", fmt.Errorf("%w: variable %q: %q is not a recognised date", ErrCoercion, spec.Name, raw)

	case registry.VariableMeasurement:
		value, unit, err := parseMeasurement(raw)
		if err != nil {
			return "", fmt.Errorf("%w: variable %q: %q is not a measurement", ErrCoercion, spec.Name, raw)
		}
		if err := checkBounds(spec, value); err != nil {
			return "", err
		}
		if unit == "" {
			unit = spec.Unit
		}
		if unit == "" {
			return formatNumber(value), nil
		}
		return formatNumber(value) + " " + unit, nil
	}

	return "", fmt.Errorf("%w: variable %q: unknown type %q", ErrCoercion, spec.Name, typ)
}

// parseNumber accepts both dot and comma decimal separators.
func parseNumber(raw string) (float64, error) {
	s := strings.ReplaceAll(raw, ",", ".")
	return strconv.ParseFloat(s, 64)
}

// formatNumber renders without trailing zeros ("5", "3.5").
func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// parseMeasurement splits a dictated measurement into numeric value and
// optional trailing unit ("5 mm", "3,5cm", "12").
func parseMeasurement(raw string) (float64, string, error) {
	s := strings.ReplaceAll(raw, ",", ".")
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.' || s[end] == '-' && end == 0) {
		end++
	}
	if end == 0 {
		return 0, "", fmt.Errorf("no leading number in %q", raw)
	}
	value, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, "", err
	}
	return value, strings.TrimSpace(s[end:]), nil
}

// checkBounds validates n against the spec's min/max when declared.
func checkBounds(spec registry.VariableSpec, n float64) error {
	if spec.Min != nil && n < *spec.Min {
		return fmt.Errorf("%w: variable %q: %v is below minimum %v", ErrCoercion, spec.Name, n, *spec.Min)
	}
	if spec.Max != nil && n > *spec.Max {
		return fmt.Errorf("%w: variable %q: %v is above maximum %v", ErrCoercion, spec.Name, n, *spec.Max)
	}
	return nil
}

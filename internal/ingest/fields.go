package ingest

import (
	"encoding/json"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/datatypes"
)

// fields is a read-only view over one scraped item. Every accessor tolerates
// missing keys, nil maps and values of the wrong type by returning the zero
// value, so adapters never fail on malformed input.
type fields map[string]any

func asFields(v any) fields {
	m, _ := v.(map[string]any)
	return m
}

// lookup resolves a dot path such as "entreprise.nom" or "partenaires.0.url".
// Numeric segments index into arrays.
func (f fields) lookup(path string) (any, bool) {
	var cur any = map[string]any(f)
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// str returns the first path holding a non-empty scalar, whitespace collapsed.
// Numbers are rendered without exponent so numeric ids stay stable.
func (f fields) str(paths ...string) string {
	for _, p := range paths {
		v, ok := f.lookup(p)
		if !ok {
			continue
		}
		if s := collapse(scalar(v)); s != "" {
			return s
		}
	}
	return ""
}

// text is like str but keeps line breaks; HTML is reduced to plain text.
func (f fields) text(paths ...string) string {
	for _, p := range paths {
		v, ok := f.lookup(p)
		if !ok {
			continue
		}
		if s := cleanText(scalar(v)); s != "" {
			return s
		}
	}
	return ""
}

// joined flattens a list of scalars (or a single scalar) at the first
// matching path into one string.
func (f fields) joined(sep string, paths ...string) string {
	for _, p := range paths {
		v, ok := f.lookup(p)
		if !ok {
			continue
		}
		list, isList := v.([]any)
		if !isList {
			if s := collapse(scalar(v)); s != "" {
				return s
			}
			continue
		}
		parts := make([]string, 0, len(list))
		for _, e := range list {
			if s := collapse(scalar(e)); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, sep)
		}
	}
	return ""
}

// list returns the strings at path. Accepted shapes: an array of scalars, an
// array of objects (the first non-empty of objKeys is taken from each), or a
// single comma/semicolon separated string. Order is kept, duplicates dropped.
func (f fields) list(path string, objKeys ...string) []string {
	v, ok := f.lookup(path)
	if !ok {
		return nil
	}
	var raw []string
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if obj, isObj := e.(map[string]any); isObj {
				raw = append(raw, fields(obj).str(objKeys...))
				continue
			}
			raw = append(raw, scalar(e))
		}
	case string:
		raw = strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ';' })
	default:
		return nil
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, s := range raw {
		s = collapse(s)
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Timestamps outside [1970, 10000) are dropped: the SQL drivers cannot read
// back years past 9999.
var (
	minTime = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	maxTime = time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)
)

func inWindow(t time.Time) bool {
	return !t.Before(minTime) && t.Before(maxTime)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// timestamp returns the first path that parses as a timestamp: RFC 3339, a bare
// date, or a unix epoch number (milliseconds when large enough, else seconds).
// Zone-less values are read as UTC. Out-of-window values count as absent.
func (f fields) timestamp(paths ...string) *time.Time {
	for _, p := range paths {
		v, ok := f.lookup(p)
		if !ok {
			continue
		}
		if t, ok := parseTime(v); ok {
			return &t
		}
	}
	return nil
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				ts = ts.UTC()
				return ts, inWindow(ts)
			}
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpoch(n)
		}
	case json.Number:
		if n, err := t.Float64(); err == nil {
			return fromEpoch(n)
		}
	case float64:
		return fromEpoch(t)
	case int64:
		return fromEpoch(float64(t))
	case int:
		return fromEpoch(float64(t))
	}
	return time.Time{}, false
}

func fromEpoch(n float64) (time.Time, bool) {
	if n <= 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return time.Time{}, false
	}
	var t time.Time
	switch {
	case n >= float64(maxTime.UnixMilli()):
		return time.Time{}, false
	case n >= 1e11:
		t = time.UnixMilli(int64(n)).UTC()
	default:
		t = time.Unix(int64(n), 0).UTC()
	}
	return t, inWindow(t)
}

// scalar renders strings and numbers; everything else is "".
func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := t.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }

var (
	htmlTag     = regexp.MustCompile(`<[^>]*>`)
	htmlBreak   = regexp.MustCompile(`(?i)<\s*(br|/p|/li|/div|/h[1-6])\s*/?>`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
	innerSpaces = regexp.MustCompile(`[\p{Zs}\t\f\v]+`)
)

// cleanText strips HTML, unescapes entities, collapses runs of spaces within
// lines, and keeps at most one blank line between paragraphs.
func cleanText(s string) string {
	if strings.Contains(s, "<") {
		s = htmlBreak.ReplaceAllString(s, "\n")
		s = htmlTag.ReplaceAllString(s, "")
	}
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(innerSpaces.ReplaceAllString(l, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

var deptPrefix = regexp.MustCompile(`^\d{2,3}[A-Za-z]?\s*-\s*`)

// city extracts a display city from a free-form location such as
// "Paris, Île-de-France, France" or "75 - PARIS 15" and title-cases it
// with French rules ("saint-étienne" → "Saint-Étienne").
func city(location string) string {
	loc := collapse(location)
	if i := strings.IndexAny(loc, ",("); i >= 0 {
		loc = loc[:i]
	}
	loc = strings.TrimSpace(deptPrefix.ReplaceAllString(loc, ""))
	if loc == "" {
		return ""
	}
	// A Caser is stateful; build one per call.
	return cases.Title(language.French).String(loc)
}

// skillsJSON encodes skills as a JSON array, or nil when there are none.
func skillsJSON(skills []string) datatypes.JSON {
	if len(skills) == 0 {
		return nil
	}
	b, err := json.Marshal(skills)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// ptr returns nil for the empty string.
func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

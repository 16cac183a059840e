// Package changes computes field-level diffs between two versions of a document.
//
// Entities are compared in their serialized (JSON) form: dates are RFC 3339
// strings, nested sub-documents are objects, and absent optional values are
// missing keys. Timestamps are rewritten in UTC, so two values are equal when
// their serialized forms are equal and equal instants never show as a change.
package changes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"crm_pipeline/internal/domain/entities"
)

// Document is the serialized form of an entity.
type Document map[string]any

// Changes maps a dotted field path to its before/after values.
type Changes map[string]entities.FieldChange

// Fields never compared, whatever their depth.
var ignoredKeys = map[string]struct{}{
	"id":        {},
	"version":   {},
	"createdAt": {},
	"updatedAt": {},
}

// Top-level fields tracked by other means.
var ignoredRoots = map[string]struct{}{
	"notes": {},
}

// ToDocument serializes v and decodes it back as a generic object tree.
func ToDocument(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("changes: encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("changes: decode document: %w", err)
	}
	normalizeTimes(doc)
	return doc, nil
}

func normalizeTimes(v any) any {
	switch t := v.(type) {
	case Document:
		for k, e := range t {
			t[k] = normalizeTimes(e)
		}
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeTimes(e)
		}
	case []any:
		for i, e := range t {
			t[i] = normalizeTimes(e)
		}
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts.UTC().Format(time.RFC3339Nano)
		}
	}
	return v
}

// Diff walks both documents and returns every path whose value changed.
// exclude holds extra dotted paths to skip; a path also skips its subtree.
func Diff(oldDoc, newDoc Document, exclude ...string) Changes {
	out := Changes{}
	walk(out, "", map[string]any(oldDoc), map[string]any(newDoc), exclude)
	return out
}

func walk(out Changes, prefix string, oldObj, newObj map[string]any, exclude []string) {
	for _, key := range unionKeys(oldObj, newObj) {
		if _, skip := ignoredKeys[key]; skip {
			continue
		}
		if prefix == "" {
			if _, skip := ignoredRoots[key]; skip {
				continue
			}
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if excluded(path, exclude) {
			continue
		}

		ov, oOK := oldObj[key]
		nv, nOK := newObj[key]
		if !oOK && !nOK {
			continue
		}

		om, oIsObj := ov.(map[string]any)
		nm, nIsObj := nv.(map[string]any)
		switch {
		case oIsObj && nIsObj:
			walk(out, path, om, nm, exclude)
			continue
		case oIsObj && nv == nil:
			walk(out, path, om, nil, exclude)
			continue
		case nIsObj && ov == nil:
			walk(out, path, nil, nm, exclude)
			continue
		}

		if !Equal(ov, nv) {
			out[path] = entities.FieldChange{From: ov, To: nv}
		}
	}
}

// Equal compares two values by their serialized form.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func excluded(path string, exclude []string) bool {
	for _, e := range exclude {
		if path == e || strings.HasPrefix(path, e+".") {
			return true
		}
	}
	return false
}

// Without returns a copy of c minus prefix and everything below it.
func (c Changes) Without(prefix string) Changes {
	out := make(Changes, len(c))
	for path, ch := range c {
		if path == prefix || strings.HasPrefix(path, prefix+".") {
			continue
		}
		out[path] = ch
	}
	return out
}

// Has reports whether path itself changed.
func (c Changes) Has(path string) bool {
	_, ok := c[path]
	return ok
}

// Paths returns the changed paths sorted.
func (c Changes) Paths() []string {
	paths := make([]string, 0, len(c))
	for p := range c {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Note renders the changes as "<field>: <from> → <to>" entries joined by ", ".
func (c Changes) Note() string {
	parts := make([]string, 0, len(c))
	for _, p := range c.Paths() {
		ch := c[p]
		parts = append(parts, fmt.Sprintf("%s: %s → %s", p, render(ch.From), render(ch.To)))
	}
	return strings.Join(parts, ", ")
}

func render(v any) string {
	switch t := v.(type) {
	case nil:
		return "empty"
	case string:
		if t == "" {
			return "empty"
		}
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file defines LogSpec, the immutable set of module filters that decides
// which records are written, and its evaluation by longest-prefix match.

package speclog

import (
	"regexp"
	"sort"
	"strings"
)

// ModuleFilter sets the threshold for every module whose path starts with ModuleName.
// An empty ModuleName makes it the default filter, which applies to all modules that
// no named filter matches.
type ModuleFilter struct {
	ModuleName  string
	LevelFilter Level
}

// IsDefault reports whether mf is the default filter.
func (mf ModuleFilter) IsDefault() bool { return mf.ModuleName == "" }

// LogSpec is an immutable log specification. Its module filters are kept sorted so
// that the first match during evaluation is the longest matching prefix, with the
// default filter last.
type LogSpec struct {
	moduleFilters []ModuleFilter
	textFilter    *regexp.Regexp
}

// OffSpec returns a spec that lets nothing through.
func OffSpec() *LogSpec {
	return &LogSpec{}
}

// newLogSpec de-duplicates filters by name, keeping the last occurrence, and sorts them.
func newLogSpec(filters []ModuleFilter, textFilter *regexp.Regexp) *LogSpec {
	byName := make(map[string]int, len(filters))
	out := make([]ModuleFilter, 0, len(filters))
	for _, mf := range filters {
		if i, ok := byName[mf.ModuleName]; ok {
			out[i] = mf
			continue
		}
		byName[mf.ModuleName] = len(out)
		out = append(out, mf)
	}
	sortModuleFilters(out)
	return &LogSpec{moduleFilters: out, textFilter: textFilter}
}

// sortModuleFilters orders filters by descending name length, then by name.
// The default filter has the shortest name and therefore ends up last.
func sortModuleFilters(mfs []ModuleFilter) {
	sort.Slice(mfs, func(i, j int) bool {
		if len(mfs[i].ModuleName) != len(mfs[j].ModuleName) {
			return len(mfs[i].ModuleName) > len(mfs[j].ModuleName)
		}
		return mfs[i].ModuleName < mfs[j].ModuleName
	})
}

// Enabled reports whether a record of the given level from the given module passes
// the module filters. The text filter is not consulted.
func (s *LogSpec) Enabled(level Level, module string) bool {
	if s == nil || level <= OFF || level > TRACE {
		return false
	}
	for _, mf := range s.moduleFilters {
		if mf.ModuleName != "" && !strings.HasPrefix(module, mf.ModuleName) {
			continue
		}
		return level <= mf.LevelFilter
	}
	return false
}

// MaxLevel is the most verbose threshold among all filters, or OFF for an empty spec.
func (s *LogSpec) MaxLevel() Level {
	if s == nil {
		return OFF
	}
	top := OFF
	for _, mf := range s.moduleFilters {
		if mf.LevelFilter > top {
			top = mf.LevelFilter
		}
	}
	return top
}

// ModuleFilters returns a copy of the filters in evaluation order.
func (s *LogSpec) ModuleFilters() []ModuleFilter {
	if s == nil {
		return nil
	}
	out := make([]ModuleFilter, len(s.moduleFilters))
	copy(out, s.moduleFilters)
	return out
}

// DefaultLevel returns the threshold of the default filter, if there is one.
func (s *LogSpec) DefaultLevel() (Level, bool) {
	if s == nil || len(s.moduleFilters) == 0 {
		return OFF, false
	}
	last := s.moduleFilters[len(s.moduleFilters)-1]
	if !last.IsDefault() {
		return OFF, false
	}
	return last.LevelFilter, true
}

// TextFilter returns the compiled message filter, or nil.
func (s *LogSpec) TextFilter() *regexp.Regexp {
	if s == nil {
		return nil
	}
	return s.textFilter
}

// String renders the spec in the text format accepted by ParseLogSpec.
// A text filter that itself contains a '/' does not survive the round trip.
func (s *LogSpec) String() string {
	if s == nil {
		return ""
	}
	var sb strings.Builder
	for i, mf := range s.moduleFilters {
		if i > 0 {
			sb.WriteString(", ")
		}
		lvl := strings.ToLower(mf.LevelFilter.String())
		if mf.IsDefault() {
			sb.WriteString(lvl)
			continue
		}
		sb.WriteString(mf.ModuleName)
		sb.WriteByte('=')
		sb.WriteString(lvl)
	}
	if s.textFilter != nil {
		sb.WriteByte('/')
		sb.WriteString(s.textFilter.String())
	}
	return sb.String()
}

// Equal reports whether two specs have the same filters and text filter pattern.
func (s *LogSpec) Equal(other *LogSpec) bool {
	a, b := s.ModuleFilters(), other.ModuleFilters()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	ta, tb := s.TextFilter(), other.TextFilter()
	if ta == nil || tb == nil {
		return ta == nil && tb == nil
	}
	return ta.String() == tb.String()
}

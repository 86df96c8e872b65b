// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file provides LogSpecBuilder for assembling specs in code. A builder can be
// modified and built repeatedly, which suits programmatic reconfiguration.

package speclog

import "regexp"

// LogSpecBuilder accumulates module filters. It is not safe for concurrent use.
type LogSpecBuilder struct {
	moduleFilters map[string]Level
}

// NewLogSpecBuilder returns a builder whose default filter is OFF.
func NewLogSpecBuilder() *LogSpecBuilder {
	return &LogSpecBuilder{moduleFilters: map[string]Level{"": OFF}}
}

// BuilderFromModuleFilters returns a builder seeded with the given filters.
// Later filters with the same name win.
func BuilderFromModuleFilters(mfs ...ModuleFilter) *LogSpecBuilder {
	b := &LogSpecBuilder{moduleFilters: make(map[string]Level, len(mfs))}
	for _, mf := range mfs {
		b.moduleFilters[mf.ModuleName] = mf.LevelFilter
	}
	return b
}

// BuilderFromSpec returns a builder seeded with the filters of ls.
func BuilderFromSpec(ls *LogSpec) *LogSpecBuilder {
	return BuilderFromModuleFilters(ls.ModuleFilters()...)
}

// Default sets the threshold of the default filter.
func (b *LogSpecBuilder) Default(lvl Level) *LogSpecBuilder {
	b.moduleFilters[""] = lvl
	return b
}

// Module sets the threshold for a module path. An empty name sets the default.
func (b *LogSpecBuilder) Module(name string, lvl Level) *LogSpecBuilder {
	b.moduleFilters[name] = lvl
	return b
}

// Remove deletes the filter for a module path.
func (b *LogSpecBuilder) Remove(name string) *LogSpecBuilder {
	delete(b.moduleFilters, name)
	return b
}

// InsertModulesFrom adds or overwrites the named filters of other. Its default
// filter is not taken over.
func (b *LogSpecBuilder) InsertModulesFrom(other *LogSpec) *LogSpecBuilder {
	for _, mf := range other.ModuleFilters() {
		if !mf.IsDefault() {
			b.moduleFilters[mf.ModuleName] = mf.LevelFilter
		}
	}
	return b
}

// Build creates a spec without a text filter. The builder stays usable.
func (b *LogSpecBuilder) Build() *LogSpec {
	return b.BuildWithTextFilter(nil)
}

// BuildWithTextFilter creates a spec with the given text filter, which may be nil.
func (b *LogSpecBuilder) BuildWithTextFilter(textFilter *regexp.Regexp) *LogSpec {
	filters := make([]ModuleFilter, 0, len(b.moduleFilters))
	for name, lvl := range b.moduleFilters {
		filters = append(filters, ModuleFilter{ModuleName: name, LevelFilter: lvl})
	}
	return newLogSpec(filters, textFilter)
}

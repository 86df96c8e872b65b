// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file implements the parser for the textual log specification:
//
//	[module_path[=level]][,...][/regex]
//
// Parsing is best-effort. Invalid parts are skipped and reported, and the parts
// that could be parsed always form a usable spec.

package speclog

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"
)

// EnvSpecVariable is the environment variable read by SpecFromEnv.
const EnvSpecVariable = "SPECLOG"

// ParseError lists the problems found while parsing a log specification.
type ParseError struct {
	Problems []string
}

func (e *ParseError) Error() string {
	if len(e.Problems) == 1 {
		return "speclog: invalid log spec: " + e.Problems[0]
	}
	return fmt.Sprintf("speclog: %d problems in log spec: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// ParseLogSpec parses a textual log specification.
//
// The returned spec is never nil. If some parts are invalid they are ignored, and
// the error is a *ParseError that lists them; the spec then holds the valid parts.
func ParseLogSpec(spec string) (*LogSpec, error) {
	parts := strings.Split(spec, "/")
	if len(parts) > 2 {
		return OffSpec(), &ParseError{Problems: []string{
			fmt.Sprintf("invalid log spec '%s' (too many '/'s), ignoring it", spec),
		}}
	}

	var (
		problems []string
		filters  []ModuleFilter
	)
	for _, raw := range strings.Split(parts[0], ",") {
		item := strings.TrimSpace(raw)
		if item == "" {
			continue
		}
		mf, problem := parseModuleFilter(item)
		if problem != "" {
			problems = append(problems, problem)
			continue
		}
		filters = append(filters, mf)
	}

	var textFilter *regexp.Regexp
	if len(parts) == 2 && parts[1] != "" {
		re, err := regexp.Compile(parts[1])
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid regex filter - %v", err))
		} else {
			textFilter = re
		}
	}

	ls := newLogSpec(filters, textFilter)
	if len(problems) > 0 {
		return ls, &ParseError{Problems: problems}
	}
	return ls, nil
}

// MustParseLogSpec is like ParseLogSpec but panics if the spec has problems.
func MustParseLogSpec(spec string) *LogSpec {
	ls, err := ParseLogSpec(spec)
	if err != nil {
		panic(err)
	}
	return ls
}

// parseModuleFilter parses a single comma-separated item. It returns a non-empty
// problem description if the item has to be skipped.
func parseModuleFilter(item string) (ModuleFilter, string) {
	toks := strings.Split(item, "=")
	switch len(toks) {
	case 1:
		name := strings.TrimSpace(toks[0])
		if problem := checkModuleName(name); problem != "" {
			return ModuleFilter{}, problem
		}
		// A bare level name sets the default.
		if lvl, err := ParseLevel(name); err == nil {
			return ModuleFilter{LevelFilter: lvl}, ""
		}
		return ModuleFilter{ModuleName: name, LevelFilter: MaxLevel}, ""
	case 2:
		name := strings.TrimSpace(toks[0])
		lvlText := strings.TrimSpace(toks[1])
		if name == "" {
			return ModuleFilter{}, fmt.Sprintf("missing module name in '%s', ignoring it", item)
		}
		if problem := checkModuleName(name); problem != "" {
			return ModuleFilter{}, problem
		}
		if lvlText == "" {
			return ModuleFilter{ModuleName: name, LevelFilter: MaxLevel}, ""
		}
		lvl, err := ParseLevel(lvlText)
		if err != nil {
			return ModuleFilter{}, err.Error()
		}
		return ModuleFilter{ModuleName: name, LevelFilter: lvl}, ""
	default:
		return ModuleFilter{}, fmt.Sprintf("invalid part in log spec '%s', ignoring it", item)
	}
}

func checkModuleName(name string) string {
	if strings.ContainsRune(name, '-') || strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return fmt.Sprintf("ignoring invalid part in log spec '%s' (contains a dash or whitespace)", name)
	}
	return ""
}

// SpecFromEnv parses the value of EnvSpecVariable. If the variable is unset, it
// returns an OffSpec and a nil error.
func SpecFromEnv() (*LogSpec, error) {
	v, ok := os.LookupEnv(EnvSpecVariable)
	if !ok {
		return OffSpec(), nil
	}
	return ParseLogSpec(v)
}

// SpecFromEnvOr parses EnvSpecVariable if it is set, and fallback otherwise.
func SpecFromEnvOr(fallback string) (*LogSpec, error) {
	if v, ok := os.LookupEnv(EnvSpecVariable); ok {
		return ParseLogSpec(v)
	}
	return ParseLogSpec(fallback)
}

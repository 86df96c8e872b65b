// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file handles the persisted form of a log specification: a small TOML
// document with an optional default level, an optional text filter pattern and
// a table of per-module levels.

package speclog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

// ErrInvalidSpecFile is returned when a spec file path cannot be used.
var ErrInvalidSpecFile = errors.New("speclog: invalid spec file")

// specFileFormat is the decoded layout of a spec file.
type specFileFormat struct {
	GlobalLevel   *string           `toml:"global_level,omitempty"`
	GlobalPattern *string           `toml:"global_pattern,omitempty"`
	Modules       map[string]string `toml:"modules,omitempty"`
}

// WriteTOML serializes the spec as a commented TOML document that LogSpecFromTOML
// reads back into an equal spec.
func (s *LogSpec) WriteTOML(w io.Writer) error {
	var (
		buf     bytes.Buffer
		top     specFileFormat
		modules = map[string]string{}
	)
	for _, mf := range s.ModuleFilters() {
		lvl := strings.ToLower(mf.LevelFilter.String())
		if mf.IsDefault() {
			top.GlobalLevel = &lvl
			continue
		}
		modules[mf.ModuleName] = lvl
	}
	if tf := s.TextFilter(); tf != nil {
		pattern := tf.String()
		top.GlobalPattern = &pattern
	}

	buf.WriteString("### Optional: Default log level\n")
	if top.GlobalLevel == nil {
		buf.WriteString("#global_level = 'info'\n")
	} else if err := encodeTOML(&buf, specFileFormat{GlobalLevel: top.GlobalLevel}); err != nil {
		return err
	}
	buf.WriteString("### Optional: specify a regular expression to suppress all messages that don't match\n")
	if top.GlobalPattern == nil {
		buf.WriteString("#global_pattern = 'foo'\n")
	} else if err := encodeTOML(&buf, specFileFormat{GlobalPattern: top.GlobalPattern}); err != nil {
		return err
	}

	buf.WriteString("\n### Specific log levels per module are optionally defined in this section\n")
	if len(modules) == 0 {
		buf.WriteString("[modules]\n#'mod1' = 'warn'\n#'mod2' = 'debug'\n#'mod2::mod3' = 'trace'\n")
	} else if err := encodeTOML(&buf, struct {
		Modules map[string]string `toml:"modules"`
	}{modules}); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func encodeTOML(buf *bytes.Buffer, v any) error {
	enc := toml.NewEncoder(buf)
	enc.Indent = ""
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "speclog: cannot encode log spec")
	}
	return nil
}

// LogSpecFromTOML decodes a spec file. Like ParseLogSpec it returns a *ParseError
// together with the usable part of the spec when some entries are invalid. A
// document that is not valid TOML yields an OffSpec and a decoding error.
// Module names are quoted keys and are taken as they are, so any name a
// LogSpecBuilder accepts survives a WriteTOML round trip.
func LogSpecFromTOML(data []byte) (*LogSpec, error) {
	var ff specFileFormat
	md, err := toml.Decode(string(data), &ff)
	if err != nil {
		return OffSpec(), errors.Wrap(err, "speclog: cannot decode log spec file")
	}

	var (
		problems []string
		filters  []ModuleFilter
	)
	if ff.GlobalLevel != nil {
		lvl, err := ParseLevel(*ff.GlobalLevel)
		if err != nil {
			problems = append(problems, err.Error())
		} else {
			filters = append(filters, ModuleFilter{LevelFilter: lvl})
		}
	}

	names := make([]string, 0, len(ff.Modules))
	for name := range ff.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "" {
			problems = append(problems, "empty module name in [modules], ignoring it")
			continue
		}
		lvl, err := ParseLevel(ff.Modules[name])
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		filters = append(filters, ModuleFilter{ModuleName: name, LevelFilter: lvl})
	}

	var textFilter *regexp.Regexp
	if ff.GlobalPattern != nil && *ff.GlobalPattern != "" {
		re, err := regexp.Compile(*ff.GlobalPattern)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid regex filter - %v", err))
		} else {
			textFilter = re
		}
	}

	for _, key := range md.Undecoded() {
		problems = append(problems, fmt.Sprintf("unknown key '%s', ignoring it", key))
	}

	ls := newLogSpec(filters, textFilter)
	if len(problems) > 0 {
		return ls, &ParseError{Problems: problems}
	}
	return ls, nil
}

// ReadSpecFile reads and decodes the spec file at path.
func ReadSpecFile(path string) (*LogSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OffSpec(), errors.Wrapf(err, "speclog: cannot read spec file %s", path)
	}
	return LogSpecFromTOML(data)
}

// ensureSpecFile makes sure a usable spec file exists at path. If the file is
// missing, it is created together with its parent directories and filled with
// spec. The returned flag reports whether the file was created.
func ensureSpecFile(path string, spec *LogSpec) (bool, error) {
	if filepath.Ext(path) != ".toml" {
		return false, errors.Wrapf(ErrInvalidSpecFile, "%s: only files with suffix .toml are supported", path)
	}
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return false, errors.Wrapf(ErrInvalidSpecFile, "%s is a directory", path)
	case err == nil:
		return false, nil
	case !os.IsNotExist(err):
		return false, errors.Wrapf(err, "speclog: cannot stat spec file %s", path)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, errors.Wrapf(err, "speclog: cannot create directory for spec file %s", path)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return false, errors.Wrapf(err, "speclog: cannot create spec file %s", path)
	}
	werr := spec.WriteTOML(f)
	cerr := f.Close()
	if err := errors.CombineErrors(werr, cerr); err != nil {
		return true, errors.Wrapf(err, "speclog: cannot write spec file %s", path)
	}
	return true, nil
}

// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file exposes the logger's statistics as Prometheus metrics.

package speclog

import "github.com/prometheus/client_golang/prometheus"

var (
	writtenDesc = prometheus.NewDesc("speclog_records_written_total",
		"Records accepted by the primary writer.", nil, nil)
	writeErrorsDesc = prometheus.NewDesc("speclog_write_errors_total",
		"Records lost because the primary writer failed.", nil, nil)
	duplicateErrorsDesc = prometheus.NewDesc("speclog_duplicate_errors_total",
		"Failed copies of records to stderr.", nil, nil)
	textFilteredDesc = prometheus.NewDesc("speclog_text_filtered_total",
		"Records rejected by the text filter.", nil, nil)
	reloadsDesc = prometheus.NewDesc("speclog_spec_reloads_total",
		"Log spec replacements.", nil, nil)
	reloadErrorsDesc = prometheus.NewDesc("speclog_spec_reload_errors_total",
		"Log spec updates rejected because of problems.", nil, nil)
	writerErrorsDesc = prometheus.NewDesc("speclog_writer_errors_total",
		"Failed write attempts per writer.", []string{"writer"}, nil)
	maxLevelDesc = prometheus.NewDesc("speclog_max_level",
		"Most verbose level enabled by the active spec (0 is off, 5 is trace).", nil, nil)
)

type statsCollector struct {
	l *Logger
}

// Collector returns a prometheus.Collector that reports the logger's Stats.
func (l *Logger) Collector() prometheus.Collector {
	return statsCollector{l: l}
}

func (c statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- writtenDesc
	ch <- writeErrorsDesc
	ch <- duplicateErrorsDesc
	ch <- textFilteredDesc
	ch <- reloadsDesc
	ch <- reloadErrorsDesc
	ch <- writerErrorsDesc
	ch <- maxLevelDesc
}

func (c statsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.l.Stats()
	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	counter(writtenDesc, s.Written)
	counter(writeErrorsDesc, s.WriteErrors)
	counter(duplicateErrorsDesc, s.DuplicateErrors)
	counter(textFilteredDesc, s.TextFiltered)
	counter(reloadsDesc, s.Reloads)
	counter(reloadErrorsDesc, s.ReloadErrors)
	for name, v := range s.WriterErrors {
		counter(writerErrorsDesc, v, name)
	}
	ch <- prometheus.MustNewConstMetric(maxLevelDesc, prometheus.GaugeValue, float64(s.MaxLevel))
}

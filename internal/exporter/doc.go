// Package exporter renders computed climate indices as files.
//
// Three components cooperate:
//
// CSVWriter: core CSV writing with optional UTF-8 BOM for Excel
// compatibility, append mode and a streaming variant for large result
// sets.
//
// ReportExporter: writes per-granularity index tables (one row per
// group, one column per index) and long-format result listings.
//
// WorkbookExporter: writes an Excel workbook with a summary sheet
// (station metadata and per-index statistics) and one sheet per
// granularity table.
package exporter

// Package services contains the application layer between transport and
// the climate engine. ComputeService orchestrates index computation
// runs, ThresholdService exposes percentile thresholds, ReportService
// assembles exportable reports with summary statistics, and
// HealthService aggregates component checks.
package services

// Package config loads and validates application configuration.
//
// Configuration is resolved in three layers, later layers overriding
// earlier ones:
//
//  1. Built-in defaults (Default)
//  2. An optional YAML file (CLIMEX_CONFIG or ./climex.yaml)
//  3. Environment variables with the CLIMEX_ prefix
//
// The Engine section mirrors the climate engine's parameters so a
// deployment can pin its base period, quantile lists, and missing-data
// tolerances without recompiling.
package config

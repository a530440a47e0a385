// Package config provides configuration structures and utilities for
// doughub. It defines where fixtures, golden records and the database
// live, how the batch runs, and the per-platform leakage detector settings
// read from .doughub.yaml.
package config

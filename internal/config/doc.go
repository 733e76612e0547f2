// Package config provides configuration structures and utilities for linkcheck.
// It defines the options of a check run, the defaults applied when nothing
// is configured, and the YAML configuration file that can override them.
package config

// Package config provides configuration structures and utilities for
// applycrawl. It defines the crawl limits, politeness settings, and
// checkpoint options, and loads target sites and URL pattern tables
// from a YAML file so the classifier and validator receive their rule
// sets as data rather than hard-coded constants.
package config

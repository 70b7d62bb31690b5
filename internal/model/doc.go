// Package model defines the core data structures shared across the
// crawler: crawl tasks, target sites, discovered candidate pages, and
// run statistics. Types in this package are plain data with no
// behavior beyond small convenience methods, so every other package
// can depend on it without cycles.
package model

// Package main provides the entry point for the applycrawl CLI.
//
// applycrawl crawls university websites and finds undergraduate
// application pages: the actual forms and portals, not the marketing
// pages around them.
//
// Usage:
//
//	applycrawl crawl https://www.example.edu
//	applycrawl crawl -c targets.yaml
//
// See --help for all available options.
package main

// main is the entry point for applycrawl.
func main() {
	Execute()
}

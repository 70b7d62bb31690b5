// Package report renders crawl results for humans and tools: a JSON
// dump for programmatic consumption and a Markdown "how to apply"
// summary per target.
package report

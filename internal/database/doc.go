// Package database persists crawl runs, candidate pages, and domain
// statistics to SQLite. Persistence is best-effort from the crawl's
// point of view: callers log failures and keep crawling.
package database

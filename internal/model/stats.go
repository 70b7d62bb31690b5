package model

import "time"

// DomainCount pairs a domain with its visit count, used for top-domain
// reporting and persistence.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// CrawlStats is a point-in-time snapshot of run counters. It is the
// data the monitor logs, the checkpoint manager persists for resume,
// and the reporting layer consumes at the end of a run.
type CrawlStats struct {
	Timestamp        time.Time      `json:"timestamp"`
	Visited          int            `json:"visited"`
	Queued           int            `json:"queued"`
	Candidates       int            `json:"candidates"`
	DomainCounts     map[string]int `json:"domain_counts"`
	AdmissionDomains []string       `json:"admission_domains"`
}

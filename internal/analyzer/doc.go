// Package analyzer decides whether fetched pages are undergraduate
// application pages. The Detector is the cheap per-page relevance test
// run inside the fetch path; the Evaluator re-scores batches of
// candidates after the fact and fills in the final verdict.
package analyzer

// Package progress reports archival progress. Console writes the human
// facing lines to a terminal, Log mirrors the same milestones as structured
// debug logs, and Multi fans every milestone out to several reporters.
package progress

// Package status derives what the dashboard shows from the active period,
// the ledger and the pipeline.
package status

// Package ledger tracks which of today's periods are marked, merging
// optimistic local marks with the server's record.
package ledger

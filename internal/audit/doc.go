// Package audit provides a minimal persistence layer for the crontab
// manager.
//
// It currently supports:
//   - Mutation journal appends (who changed what, when)
//   - Native-store checksums (to flag external edits across runs)
package audit

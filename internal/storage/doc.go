// Package storage provides the optional persistence layer.
//
// It records:
//   - Delivery history (one entry per gateway attempt outcome)
//   - Notifier dedup state, so a restarted daemon does not resend a report
package storage

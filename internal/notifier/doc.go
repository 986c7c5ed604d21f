// Package notifier delivers composed reports to push gateways.
//
// A Gateway turns a title and a body into one outbound message. Two gateways
// exist: ServerChan (the mobile push service addressed by a send key) and
// Telegram (a bot posting to a chat).
//
// # Delivery
//
// Service sends to every configured gateway in order and stops at the first
// failure. Each send passes a token-bucket limiter and may be retried with
// exponential backoff and jitter. Identical reports (same job, title and body)
// are suppressed for a configurable window; the window survives restarts when
// a storage backend is configured.
//
// # History
//
// Every attempt is recorded in storage as a DeliveryEntry when storage is on.
package notifier

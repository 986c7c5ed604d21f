// Package provider holds the HTTP plumbing shared by the data providers
// (weather, news, rates, quotes).
//
// Each provider lives in its own subpackage, owns its response structs and
// returns plain values. Required fields are checked right after decoding so a
// reshaped upstream payload fails the run instead of rendering empty text.
package provider

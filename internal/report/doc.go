// Package report composes the notification text.
//
// A Composer holds an ordered list of Sections. Each section asks its data
// provider once, formats the answer and returns a text fragment; the composer
// appends fragments in order. There is no retry, fan-out or caching: the first
// failing section fails the whole report.
//
// Two jobs are built from these parts:
//
//   - morning report: time header, weather, news, finance, quote
//   - meal reminder: time header, meal message
package report

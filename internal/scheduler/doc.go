// Package scheduler triggers jobs in daemon mode.
//
// Triggers are robfig/cron entries in the configured timezone. A schedule
// string may be a cron expression, a daily wall-clock time ("07:30") or an
// interval ("every:6h"). Runs of the same job never overlap: a trigger that
// fires while the previous run is still going is skipped.
package scheduler

// Package app wires configuration, logging, storage, providers, report
// composers, the notifier and the scheduler into a runnable program.
//
// RunOnce composes one report and delivers it. Run is the daemon: it triggers
// the configured jobs and hot-reloads the config file.
package app

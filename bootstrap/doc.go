// Package bootstrap runs the service lifecycle: typed config, ordered
// component start/stop, hooks, and either a long-running Run or a one-shot
// RunTask.
package bootstrap

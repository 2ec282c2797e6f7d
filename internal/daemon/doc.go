// Package daemon runs exercise synchronization: the Syncer performs one
// mirror, scan and reconcile cycle; the Scheduler repeats it at a fixed rate;
// the Daemon wires the store, event bus, subscribers and HTTP endpoints
// around them and reacts to configuration changes.
package daemon

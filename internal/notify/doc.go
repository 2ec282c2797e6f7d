// Package notify forwards domain events from the in-process bus to NATS so
// other services can react to exercise syncs and lesson completions.
package notify

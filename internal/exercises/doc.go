// Package exercises discovers exercises in a mirrored repository and
// reconciles them against the exercise store.
//
// The tree layout is fixed: exercises/<language>/practice/<exercise>/.docs/
// holds instructions.md and hints.md. Scanning walks exactly those two levels.
package exercises

// Package git maintains the local mirror of the exercise repository.
//
// A Client tracks exactly one branch of one remote. EnsureCloned creates the
// working copy when it is missing and CheckAndPull brings an existing copy up to
// date, reporting whether new commits arrived. Every failure is returned as a
// *MirrorError; nothing is retried inline.
package git

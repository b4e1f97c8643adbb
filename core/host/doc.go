// Package host declares the collaborators the reassignment engine consumes
// from the surrounding simulation: world queries, the observer, consist
// membership, the idle-car list and task construction.
package host

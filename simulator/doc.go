// Package simulator is an in-memory host loaded from a YAML world file. It
// implements every collaborator interface the reassignment engine needs and
// is used by the CLI, the MQTT host responder and tests.
package simulator

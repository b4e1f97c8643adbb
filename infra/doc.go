// Package infra holds the adapters behind the core interfaces: the zerolog
// logger, metrics sinks and the HTTP server, the Sentry monitor and the MQTT
// task bridge.
package infra

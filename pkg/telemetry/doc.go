// Package telemetry wires OpenTelemetry exporters and meters for the conduit
// simulator.
//
// It centralises trace provider setup and offers a recorder that turns the
// outcome of one network step into counters and a duration histogram, so
// operators can correlate throughput with stalls and voided items.
package telemetry

// Package device defines the field controllers managed by the gateway and
// the immutable registry built from configuration.
//
// The registry is the single source of truth for which devices exist: the
// routing generator derives one upstream and two proxy locations per entry,
// and the status aggregator issues one bounded query per entry. Both walk
// the registry in configuration order so their output is reproducible.
//
// Devices are read-only after load. There is deliberately no mutation API;
// changing the fleet means editing the configuration and restarting, which
// swaps the registry atomically.
package device

// Package mqtt publishes gateway and device status to an MQTT broker.
//
// The gateway is a publisher only: it announces its own liveness on
// farmhub/gateway/status (retained, with a Last Will for crash detection)
// and mirrors every fleet sweep onto farmhub/devices/<id>/status so other
// consumers on the farm network (wall displays, recorders, automations)
// can observe device state without polling the HTTP API.
//
// The publisher is optional. When disabled in configuration the gateway
// runs without it, and a lost broker connection is never fatal: paho
// auto-reconnects in the background and publish failures are logged and
// dropped, never surfaced to HTTP callers.
package mqtt

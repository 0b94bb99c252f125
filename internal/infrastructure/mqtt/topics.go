package mqtt

// Topic layout for the farmhub namespace.
//
//	farmhub/gateway/status        gateway liveness (retained, LWT)
//	farmhub/devices/<id>/status   last sweep result per device (retained)
const (
	topicPrefix        = "farmhub"
	topicGatewayStatus = topicPrefix + "/gateway/status"
)

// DeviceStatusTopic returns the retained status topic for a device.
func DeviceStatusTopic(deviceID string) string {
	return topicPrefix + "/devices/" + deviceID + "/status"
}

package mqtt

import "fmt"

// Topic roots. Bridge topics are flat: hoodbridge/{category}/{protocol}/{id}.
const (
	TopicPrefix       = "hoodbridge"
	TopicPrefixSystem = "hoodbridge/system"
)

// Topics builds Hood Bridge MQTT topic names.
//
//	mqtt.Topics{}.BridgeState("miele", "000123456789")
//	// hoodbridge/state/miele/000123456789
type Topics struct{}

// BridgeState is the retained state topic of one appliance.
func (Topics) BridgeState(protocol, id string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, protocol, id)
}

// BridgeCommand is the topic an appliance's controller listens on.
func (Topics) BridgeCommand(protocol, id string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, protocol, id)
}

// BridgeAck carries the result of each command.
func (Topics) BridgeAck(protocol, id string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, protocol, id)
}

// BridgeHealth is the retained health topic of a bridge.
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, protocol)
}

// BridgeDiscovery announces newly registered accessories.
func (Topics) BridgeDiscovery(protocol string) string {
	return fmt.Sprintf("%s/discovery/%s", TopicPrefix, protocol)
}

// SystemStatus is the retained online/offline topic, also used for the LWT.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllBridgeCommands matches every command topic of one protocol.
func (Topics) AllBridgeCommands(protocol string) string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefix, protocol)
}

// AllBridgeStates matches every state topic of every protocol.
func (Topics) AllBridgeStates() string {
	return TopicPrefix + "/state/+/+"
}

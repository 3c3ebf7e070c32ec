// Package mqtt connects Hood Bridge to an MQTT broker.
//
// MQTT is the bridge's outward bus. Hood controllers receive commands and
// publish state and acknowledgements on it, newly registered accessories
// are announced on it, and the bridge's own liveness is kept retained on
// hoodbridge/system/status (with a last will for crashes).
//
// Topic layout:
//
//	hoodbridge/command/miele/{uniqueId}   inbound commands
//	hoodbridge/ack/miele/{uniqueId}       command results
//	hoodbridge/state/miele/{uniqueId}     retained hood state
//	hoodbridge/health/miele               retained bridge health
//	hoodbridge/discovery/miele            retained accessory announcements
//	hoodbridge/system/status              online/offline
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllBridgeCommands("miele"), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(topic, payload)
//	    })
package mqtt

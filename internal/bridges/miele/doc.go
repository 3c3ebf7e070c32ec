// Package miele wires reconciled hoods to MQTT.
//
// The Bridge implements accessory.ControllerFactory. Each Attach gives a
// hood one controller, keyed by serial number, which translates MQTT
// commands into Miele cloud actions and publishes the resulting state.
//
// # Topics
//
//	hoodbridge/command/miele/{uniqueId}   inbound commands
//	hoodbridge/ack/miele/{uniqueId}       command results
//	hoodbridge/state/miele/{uniqueId}     hood state (retained)
//	hoodbridge/health/miele               bridge health (retained)
//
// # Commands
//
//	on, off              powerOn / powerOff
//	light_on, light_off  light 1 / light 2
//	set_fan_speed        ventilationStep, parameters {"speed": 0-4}
//	read_state           publish current state, no action
//
// State is also refreshed for every attached hood on a fixed interval, and
// whenever a new hood is attached. Unchanged state is not republished by
// the periodic refresh.
package miele

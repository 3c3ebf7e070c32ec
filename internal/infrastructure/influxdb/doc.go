// Package influxdb records Hood Bridge telemetry in InfluxDB 2.x.
//
// Two measurements are written:
//   - discovery_pass: counts and duration of each discovery pass
//   - hood_state: periodic samples of each hood's power, light, and fan level
//
// Telemetry is optional. When influxdb.enabled is false the caller keeps a
// nil *Client and every write helper is a no-op.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil && !errors.Is(err, influxdb.ErrDisabled) {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteDiscoveryPass(cfg.Bridge.ID, influxdb.PassMetrics{Hoods: 1, Created: 1})
package influxdb

// Package mqtt provides MQTT client connectivity for goveedeck.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The daemon publishes transport health, the discovered device list
// and telemetry snapshots under the goveedeck/ prefix, and accepts
// device commands on goveedeck/command/+. Home automation systems
// (Home Assistant, Node-RED) integrate through these topics without
// touching the Govee APIs themselves.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Publish a transport health update
//	topic := mqtt.Topics{}.TransportHealth("cloud")
//	client.PublishRetained(topic, payload)
//
//	// Accept commands from the bus
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        return dispatch(topic, payload)
//	    })
package mqtt

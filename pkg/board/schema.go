package board

import "fmt"

// Redis channel helpers
//
// Channels are namespaced by instance name so several boards deployments can
// share one Redis server.
//
// Channel pattern: postits:{instance_name}:{direction}

// EventsChannel returns the Pub/Sub channel the authority publishes events on.
// Pattern: postits:{instance_name}:events
func EventsChannel(instanceName string) string {
	return fmt.Sprintf("postits:%s:events", instanceName)
}

// CommandsChannel returns the Pub/Sub channel clients publish commands on.
// Pattern: postits:{instance_name}:commands
func CommandsChannel(instanceName string) string {
	return fmt.Sprintf("postits:%s:commands", instanceName)
}

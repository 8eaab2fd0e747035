// Relay is a capturing HTTP reverse proxy.
//
// Every exchange is forwarded unchanged. Response bodies that match the
// capture rules are buffered, correlated with their request and classified
// on a worker pool into typed records.
//
// Usage:
//
//	# Start the proxy with the default configuration file
//	relay run
//
//	# Start with a custom configuration file
//	relay run --config /etc/relay/relay.yaml
//
//	# Check a configuration file without starting anything
//	relay validate --config relay.yaml
//
//	# Show stored records
//	relay records list --kind PORT --limit 20
package main

import "os"

func main() {
	os.Exit(Execute())
}

// Package client provides a client for the dEcho service.
//
// A Client wraps one connection and offers two levels of access:
//
//   - Echo and Add send a request and wait for the matching response.
//     A response of the wrong variant is returned as an error.
//
//   - Send and Receive expose single messages, e.g. to pipeline requests
//     or to observe how the server reacts to unusual envelopes.
//
// The serializer and framing must match the server configuration.
//
// Usage Example:
//
//	c := client.NewClient(
//	  common.DefaultClientConfig("127.0.0.1:8080"),
//	  tcp.NewTCPClientConnector(),
//	  serializer.NewProtoSerializer(),
//	  transport.NewRawFramer(),
//	)
//	if err := c.Connect(); err != nil {
//	  log.Fatal(err)
//	}
//	defer c.Close()
//
//	sum, err := c.Add(1, 2) // 3
package client

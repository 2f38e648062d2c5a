// Package server implements the dEcho server: a registry of listeners shared by
// address, the accept loop of each listener and the per connection
// receive-dispatch-reply loop.
//
// The package focuses on:
//   - Sharing one bound listener per address between independent holders
//   - Cooperative shutdown through a running flag observed by all goroutines
//   - Keeping connections alive across malformed or empty messages
//
// Key Components:
//
//   - Registry: Maps addresses to servers. Acquire binds a new listener or
//     increments the reference count of the existing one, Release decrements it
//     and shuts the server down when it reaches zero. Both run atomically per
//     address, so a released address can be bound again immediately.
//
//   - Server: Owns the listener. Run polls for connections with a short accept
//     deadline and starts one goroutine per client. Stop releases a reference
//     through the registry.
//
//   - IRPCServerAdapter: Turns a decoded request into a response.
//     NewEchoAdapter answers Echo with the same content and Add with a+b
//     (wrapping int32 arithmetic).
//
// Usage Example:
//
//	registry := server.NewRegistry(
//	  common.DefaultServerConfig(),
//	  tcp.NewTCPServerConnector(),
//	  serializer.NewProtoSerializer(),
//	  transport.NewRawFramer(),
//	  server.NewEchoAdapter(),
//	)
//	defer registry.Close()
//
//	srv, err := registry.Acquire("127.0.0.1:8080")
//	if err != nil {
//	  log.Fatalf("bind failed: %v", err)
//	}
//	go srv.Run()
//	// ...
//	srv.Stop()
//
// Connections that are blocked in a read when the server stops finish their
// current message and exit afterwards. Set ServerConfig.ForceCloseOnStop to
// close them immediately instead.
package server

package multiplayer

// CloseReason describes why a session left a room.
type CloseReason int

const (
	CloseClientLeft     CloseReason = iota // Client closed the socket
	CloseReadError                         // Read failed or timed out
	CloseWriteError                        // Write failed
	CloseSlowConsumer                      // Outbound queue overflowed repeatedly
	CloseServerShutdown                    // Server is shutting down
	CloseProtocolError                     // Client sent frames that cannot be decoded
)

func (r CloseReason) String() string {
	switch r {
	case CloseClientLeft:
		return "Client left"
	case CloseReadError:
		return "Read error"
	case CloseWriteError:
		return "Write error"
	case CloseSlowConsumer:
		return "Slow consumer"
	case CloseServerShutdown:
		return "Server shutdown"
	case CloseProtocolError:
		return "Protocol error"
	default:
		return "Unknown"
	}
}

// Endpoint is a room-side handler for one connection. The transport calls
// Open once, Receive for every inbound frame, and Close exactly once.
type Endpoint interface {
	Open(s SessionHandle)
	Receive(s SessionHandle, frame []byte)
	Close(s SessionHandle, reason CloseReason)
}

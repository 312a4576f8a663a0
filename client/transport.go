package client

import "context"

/* Small, focused interface abstracting the realtime channel
 * implementation so the link logic is written once and the underlying
 * transport can be swapped (websocket today, fakes in tests).
 */

// Transport is one connection attempt's worth of realtime channel.
// A Transport is single-use: the link builds a fresh one per attempt.
type Transport interface {
	/* Connect dials the server and starts receiving. It blocks until
	 * the connection is established or ctx is done.
	 */
	Connect(ctx context.Context) error

	// Messages yields raw inbound frames until the connection ends
	Messages() <-chan []byte

	/* Done is closed when the connection ends for any reason;
	 * Err reports why, or nil after a clean Close
	 */
	Done() <-chan struct{}
	Err() error

	// Close tears the connection down; idempotent
	Close() error
}

// TransportFactory builds a fresh Transport for one connection attempt
type TransportFactory func() Transport

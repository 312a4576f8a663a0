package client

/* State represents the lifecycle of one persistent link
 * Follows the cycle: Disconnected -> Connecting -> Connected -> Reconnecting
 * with Errored reserved for a failed initial start
 */
type State int

const (
	Disconnected State = iota + 1
	Connecting
	Connected
	Reconnecting
	Errored
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

package bus

import "time"

// Event is a domain event published on the bus. Kind is a dotted path such as
// "row.messages.<chat_id>.insert"; subscribers filter on a Kind prefix.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

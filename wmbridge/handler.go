package wmbridge

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/bjaus/handling"
)

// NoPublishHandler returns a watermill handler that decodes each message
// with c and dispatches it to r. Decode failures and handler errors are
// returned to watermill, which nacks the message.
func NoPublishHandler(r *handling.Router, c *Codec) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		m, err := c.Decode(msg)
		if err != nil {
			return err
		}
		_, err = r.Handle(msg.Context(), m)
		return err
	}
}

// Handler is like NoPublishHandler but publishes handler results. A result
// that is a handling.Message is encoded as is; any other non-nil result is
// wrapped in an event. Results are encoded with c, so their types must be
// registered.
func Handler(r *handling.Router, c *Codec) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		m, err := c.Decode(msg)
		if err != nil {
			return nil, err
		}
		result, err := r.Handle(msg.Context(), m)
		if err != nil || result == nil {
			return nil, err
		}

		out, ok := result.(handling.Message)
		if !ok {
			out = handling.NewEvent(result, m.Metadata())
		}
		encoded, err := c.Encode(out)
		if err != nil {
			return nil, err
		}
		return []*message.Message{encoded}, nil
	}
}

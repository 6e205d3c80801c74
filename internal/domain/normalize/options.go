package normalize

import "github.com/okian/capflow/pkg/logger"

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithTopic sets the topic discriminator a record must carry to be kept.
func WithTopic(topic string) Option {
	return func(n *Normalizer) {
		if topic != "" {
			n.topic = topic
		}
	}
}

// WithTypeMaxLen caps the length, in characters, of the derived event type.
func WithTypeMaxLen(max int) Option {
	return func(n *Normalizer) {
		if max > 0 {
			n.typeMaxLen = max
		}
	}
}

// WithLogger sets the logger used for drop statistics.
func WithLogger(l logger.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

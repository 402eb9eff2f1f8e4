package notify

import "github.com/rs/zerolog/log"

// LogNotifier writes events to the log only. Used when no AMQP broker is
// configured; the lifecycle engine behaves identically either way.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Publish(event Event) error {
	log.Info().
		Str("event_id", event.ID).
		Str("kind", string(event.Kind)).
		Uint("candidate_id", event.CandidateID).
		Uint("test_id", event.TestID).
		Str("status", event.Status).
		Msg("Lifecycle event")
	return nil
}

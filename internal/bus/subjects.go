package bus

// Subjects for the three event classes the core reacts to. Delivery is
// at-least-once and unordered across channels; every consumer recomputes
// from source state instead of replaying increments.
const (
	SubjectMessageInserted   = "huddle.message.inserted"
	SubjectMembershipUpdated = "huddle.membership.updated"
	SubjectRecipientUpdated  = "huddle.recipient.updated"

	// QueueGroupAggregator makes unread recomputation land on one instance.
	// Badge subscriptions live in process memory, so the instance that holds
	// a websocket session must also be the one receiving these events. That
	// holds for the current single-binary deployment; running more than one
	// server requires the badge path to drop the queue group and fan out.
	QueueGroupAggregator = "unread-aggregator"
)

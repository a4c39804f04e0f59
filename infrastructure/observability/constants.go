package observability

// Metric name prefixes
const (
	MetricPrefix = "predictions"
)

// Metric names
const (
	// Settlement metrics
	SettlementsTotal     = MetricPrefix + ".settlements.total"
	SettlementDuration   = MetricPrefix + ".settlements.duration"
	PointsPaidTotal      = MetricPrefix + ".settlements.points_paid_total"
	PlatformFeesTotal    = MetricPrefix + ".settlements.fees_total"
	LifecycleTransitions = MetricPrefix + ".events.transitions_total"
	StakesPlacedTotal    = MetricPrefix + ".stakes.placed_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// HTTP metrics
	HTTPRequestsTotal   = MetricPrefix + ".http.requests_total"
	HTTPRequestDuration = MetricPrefix + ".http.request_duration"
)

// Label keys
const (
	LabelOutcome   = "outcome"
	LabelEventType = "event_type"
	LabelStatus    = "status"
	LabelRoute     = "route"
	LabelMethod    = "method"
)

// Settlement outcomes
const (
	OutcomeResolved        = "resolved"
	OutcomeRefunded        = "refunded"
	OutcomeAlreadyResolved = "already_resolved"
	OutcomeConflict        = "conflict"
	OutcomeRejected        = "rejected"
	OutcomeError           = "error"
)

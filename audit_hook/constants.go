package audithook

// Action constants for audit events.
const (
	// Campaign actions
	ActionCampaignDeployed = "campaign.deployed"

	// Contribution actions
	ActionContributionAccepted = "contribution.accepted"
	ActionContributionRejected = "contribution.rejected"

	// Sweep actions
	ActionFundsSwept    = "funds.swept"
	ActionSweepRejected = "sweep.rejected"
)

// Resource constants for audit events.
const (
	ResourceCampaign     = "campaign"
	ResourceContribution = "contribution"
	ResourceSweep        = "sweep"
)

// Category constants for audit events.
const (
	CategoryLifecycle = "lifecycle"
	CategoryFunding   = "funding"
	CategoryAccess    = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

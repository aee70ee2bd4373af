package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonConfig ReasonCode = "config"

	ReasonRemoteCall      ReasonCode = "remote_call"
	ReasonRemoteRateLimit ReasonCode = "remote_rate_limit"
	ReasonRemoteAuth      ReasonCode = "remote_auth"
	ReasonRemoteCancelled ReasonCode = "remote_cancelled"

	ReasonTranscriptInvalid ReasonCode = "transcript_invalid"
	ReasonToolRoundLimit    ReasonCode = "tool_round_limit"
)

package domain

// ChallengeType classifies the vendor of a bot-interception page.
type ChallengeType string

const (
	ChallengeCloudflare ChallengeType = "cloudflare"
	ChallengeAkamai     ChallengeType = "akamai"
	ChallengeBotBlock   ChallengeType = "bot-block"
	ChallengeUnknown    ChallengeType = "unknown"
)

// ChallengeDetection records that a fetch returned an anti-bot interstitial
// instead of genuine content. Its presence short-circuits persistence of the
// affected item.
type ChallengeDetection struct {
	Type       ChallengeType `json:"type"`
	Indicator  string        `json:"indicator"`
	Reason     string        `json:"reason,omitempty"`
	Confidence float64       `json:"confidence"`
}

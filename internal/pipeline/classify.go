package pipeline

import (
	"fmt"

	"violet-sync/internal/retell"
)

// Stage assignments in Salesforce.
const (
	StageQualified  = "New Application"
	StageInterested = "Candidate Interested"
)

// Rules configures the classifier. Zero values mean "match nothing", so use
// DefaultRules unless a test says otherwise.
type Rules struct {
	// SkipAgents lists agents whose chats are never synced (retired agents,
	// agents without job data).
	SkipAgents map[string]bool

	// QualifiedResults and InterestLevels are the minimum analysis outcomes
	// worth syncing.
	QualifiedResults map[string]bool
	InterestLevels   map[string]bool
}

func DefaultRules() Rules {
	return Rules{
		SkipAgents: map[string]bool{
			"SMS Violet - EMR Trainer Outreach":  true,
			"Violet - MedPro Inbound Lead Agent": true,
		},
		QualifiedResults: map[string]bool{
			"fully_qualified":     true,
			"partially_qualified": true,
		},
		InterestLevels: map[string]bool{
			"very_interested":     true,
			"somewhat_interested": true,
		},
	}
}

// Classification is the classifier's verdict: a target stage for
// qualified/interested, a reason for skip.
type Classification struct {
	Action Action
	Stage  string
	Reason string
}

// Classify maps a chat to a sync action. Pure; rules are evaluated in order
// and the first match wins.
func Classify(ev *retell.ChatEvent, rules Rules) Classification {
	if rules.SkipAgents[ev.AgentName] {
		return Classification{Action: ActionSkip, Reason: fmt.Sprintf("agent skipped: %s", ev.AgentName)}
	}

	// chat_analyzed events may arrive without chat_status="ended" but always
	// carry analysis data. Only an explicitly ongoing chat is skipped.
	if ev.ChatStatus == "ongoing" {
		return Classification{Action: ActionSkip, Reason: "chat still ongoing"}
	}

	custom := ev.Custom()
	if custom == nil {
		return Classification{Action: ActionSkip, Reason: "no analysis data"}
	}

	if custom.OptedOut {
		return Classification{Action: ActionSkip, Reason: "opted out"}
	}

	if rules.QualifiedResults[custom.QualificationResult] {
		return Classification{Action: ActionQualified, Stage: StageQualified}
	}

	if rules.InterestLevels[custom.InterestLevel] {
		return Classification{Action: ActionInterested, Stage: StageInterested}
	}

	return Classification{
		Action: ActionSkip,
		Reason: fmt.Sprintf("not qualified/interested (qual=%s, interest=%s)", custom.QualificationResult, custom.InterestLevel),
	}
}

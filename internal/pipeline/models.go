package pipeline

// Action is the pipeline outcome category. Classification yields qualified,
// interested, or skip; processing narrows qualified/interested down to
// created, duplicate, or error.
type Action string

const (
	ActionQualified  Action = "qualified"
	ActionInterested Action = "interested"
	ActionSkip       Action = "skip"
	ActionCreated    Action = "created"
	ActionDuplicate  Action = "duplicate"
	ActionError      Action = "error"
)

// Pair is the dedup/creation key: a contact id and a job id, both normalized
// to their 15-character form.
type Pair struct {
	ContactID string
	JobID     string
}

func NewPair(contactID, jobID string) Pair {
	return Pair{ContactID: NormalizeID(contactID), JobID: NormalizeID(jobID)}
}

// NormalizeID truncates an 18-character Salesforce id to its 15-character
// canonical form. Salesforce emits both variants for the same record; all
// comparisons go through this.
func NormalizeID(id string) string {
	if len(id) > 15 {
		return id[:15]
	}
	return id
}

// CandidateRecord is the Job Applicant we propose to create, plus the display
// fields notifications use.
type CandidateRecord struct {
	ContactID string
	JobID     string
	Stage     string
	Tier      Action
	ChatID    string
	Summary   string
	JobDesc   string
	Agent     string
}

// Result is the uniform outcome of one processing run.
type Result struct {
	ChatID      string `json:"chat_id"`
	Action      Action `json:"action"`
	Detail      string `json:"detail"`
	ContactID   string `json:"contact_id,omitempty"`
	JobID       string `json:"job_id,omitempty"`
	Stage       string `json:"stage,omitempty"`
	Tier        string `json:"tier,omitempty"`
	ApplicantID string `json:"applicant_id,omitempty"`
}

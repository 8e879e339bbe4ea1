package pipeline

import (
	"context"
	"fmt"
	"log"

	"violet-sync/internal/notify"
	"violet-sync/internal/retell"
)

// Creator is the slice of the Salesforce client the processor needs to create
// records. Satisfied by *salesforce.Client.
type Creator interface {
	CreateJobApplicant(ctx context.Context, contactID, jobID, stage string) (string, error)
}

// CRM is what the processor needs from Salesforce.
type CRM interface {
	Querier
	Creator
}

// Processor runs one chat through classify -> extract -> dedup -> create ->
// notify and reports a uniform Result. It never lets a single event's failure
// escape: anything unexpected becomes an error Result.
//
// The dedup check is read-then-act without a transactional lock, so two
// concurrent events for the same (contact, job) pair can both create. The
// upstream sender delivers one event per chat, so this is accepted rather
// than serialized.
type Processor struct {
	crm      CRM
	notifier notify.Notifier
	rules    Rules
}

func NewProcessor(crm CRM, notifier notify.Notifier, rules Rules) *Processor {
	return &Processor{crm: crm, notifier: notifier, rules: rules}
}

func (p *Processor) Process(ctx context.Context, ev *retell.ChatEvent) (res *Result) {
	chatID := ev.ChatID
	if chatID == "" {
		chatID = "unknown"
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Pipeline] [%s] panic: %v", shortID(chatID), r)
			res = &Result{ChatID: chatID, Action: ActionError, Detail: fmt.Sprintf("panic: %v", r)}
		}
	}()

	result := &Result{ChatID: chatID}

	// 1. Classify.
	cls := Classify(ev, p.rules)
	if cls.Action == ActionSkip {
		result.Action = ActionSkip
		result.Detail = cls.Reason
		log.Printf("[Pipeline] [%s] SKIP: %s", shortID(chatID), cls.Reason)
		return result
	}
	result.Stage = cls.Stage
	result.Tier = string(cls.Action)

	// 2. Extract ids. Both run regardless of the other's outcome.
	contactID := ExtractContactID(ev)
	jobID := ExtractJobID(ev)
	result.ContactID = contactID
	result.JobID = jobID

	if contactID == "" {
		result.Action = ActionSkip
		result.Detail = "no contact ID in chat data"
		log.Printf("[Pipeline] [%s] SKIP: no contact ID", shortID(chatID))
		return result
	}
	if jobID == "" {
		result.Action = ActionSkip
		result.Detail = "no job ID in chat data"
		log.Printf("[Pipeline] [%s] SKIP: no job ID", shortID(chatID))
		return result
	}

	// 3. Dedup against Salesforce.
	existing := ExistingApplicants(ctx, p.crm, []string{contactID})
	if existing[NewPair(contactID, jobID)] {
		result.Action = ActionDuplicate
		result.Detail = "job applicant already exists in SF"
		log.Printf("[Pipeline] [%s] DEDUP: %s + %s already exists", shortID(chatID), contactID, jobID)
		return result
	}

	// 4. Build the record and create.
	rec := buildRecord(ev, cls, contactID, jobID, chatID)

	applicantID, err := p.crm.CreateJobApplicant(ctx, rec.ContactID, rec.JobID, rec.Stage)
	if err != nil {
		result.Action = ActionError
		result.Detail = err.Error()
		log.Printf("[Pipeline] [%s] ERROR: %s", shortID(chatID), result.Detail)

		p.notifier.Notify("error", notify.Details{
			ChatID:    rec.ChatID,
			ContactID: rec.ContactID,
			JobID:     rec.JobID,
			Stage:     rec.Stage,
			Tier:      string(rec.Tier),
			Agent:     rec.Agent,
			JobDesc:   rec.JobDesc,
			Error:     result.Detail,
		})
		return result
	}

	result.Action = ActionCreated
	result.ApplicantID = applicantID
	result.Detail = fmt.Sprintf("Job Applicant %s created", applicantID)
	log.Printf("[Pipeline] [%s] CREATED: %s", shortID(chatID), result.Detail)

	p.notifier.Notify("created", notify.Details{
		ChatID:      rec.ChatID,
		ContactID:   rec.ContactID,
		JobID:       rec.JobID,
		Stage:       rec.Stage,
		Tier:        string(rec.Tier),
		ApplicantID: applicantID,
		Agent:       rec.Agent,
		JobDesc:     rec.JobDesc,
	})
	return result
}

func buildRecord(ev *retell.ChatEvent, cls Classification, contactID, jobID, chatID string) CandidateRecord {
	summary := ""
	if custom := ev.Custom(); custom != nil {
		summary = custom.ConversationSummary
	}
	if summary == "" && ev.ChatAnalysis != nil {
		summary = ev.ChatAnalysis.ChatSummary
	}
	if len(summary) > 500 {
		summary = summary[:500]
	}

	return CandidateRecord{
		ContactID: contactID,
		JobID:     jobID,
		Stage:     cls.Stage,
		Tier:      cls.Action,
		ChatID:    chatID,
		Summary:   summary,
		JobDesc:   fmt.Sprintf("%s in %s, %s", ev.Var("job_title"), ev.Var("job_city"), ev.Var("job_state")),
		Agent:     ev.AgentName,
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

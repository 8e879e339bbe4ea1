package pipeline

import (
	"strings"

	"violet-sync/internal/retell"
)

const (
	contactIDPrefix = "003"
	jobIDPrefix     = "a0F"
)

// ExtractContactID pulls the Salesforce Contact id out of a chat: direct
// dynamic variable or metadata first, then the candidate deep link. Returns
// "" when no source yields a plausible id.
func ExtractContactID(ev *retell.ChatEvent) string {
	cid := ev.Var("candidate_id")
	if cid == "" {
		cid = ev.Meta("candidate_id")
	}
	if validContactID(cid) {
		return cid
	}

	if url := ev.Var("candidate_salesforce_url"); url != "" {
		if id := pathSegmentAfter(url, "/Contact/"); validContactID(id) {
			return id
		}
	}
	return ""
}

// ExtractJobID pulls the Salesforce Job id: job deep link first, then the
// 18-character direct field. Independent of ExtractContactID.
func ExtractJobID(ev *retell.ChatEvent) string {
	if url := ev.Var("job_salesforce_url"); url != "" {
		if id := pathSegmentAfter(url, "/AVTRRT__Job__c/"); id != "" {
			return id
		}
	}

	if j18 := ev.Var("job_ID_18"); strings.HasPrefix(j18, jobIDPrefix) {
		return j18
	}
	return ""
}

func validContactID(id string) bool {
	return strings.HasPrefix(id, contactIDPrefix) && len(id) >= 15
}

// pathSegmentAfter returns the path segment immediately following marker, or
// "" when marker is absent.
func pathSegmentAfter(url, marker string) string {
	_, rest, found := strings.Cut(url, marker)
	if !found {
		return ""
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

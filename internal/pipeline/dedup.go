package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// dedupBatchSize is the backend's safe SOQL IN-clause size.
const dedupBatchSize = 25

// Querier is the slice of the Salesforce client the dedup check needs.
// Satisfied by *salesforce.Client.
type Querier interface {
	QueryAll(ctx context.Context, soql string) ([]map[string]interface{}, error)
}

// ExistingApplicants returns the set of normalized (contact, job) pairs that
// already have Job Applicant records, querying in batches. A failed batch
// logs a warning and contributes no matches: a possible duplicate create
// beats losing a lead when the backend is flaky.
func ExistingApplicants(ctx context.Context, q Querier, contactIDs []string) map[Pair]bool {
	existing := make(map[Pair]bool)

	seen := make(map[string]bool)
	var unique []string
	for _, id := range contactIDs {
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	for start := 0; start < len(unique); start += dedupBatchSize {
		end := start + dedupBatchSize
		if end > len(unique) {
			end = len(unique)
		}
		batch := unique[start:end]

		soql := fmt.Sprintf(
			"SELECT AVTRRT__Contact_Candidate__c, AVTRRT__Job__c FROM AVTRRT__Job_Applicant__c WHERE AVTRRT__Contact_Candidate__c IN ('%s')",
			strings.Join(batch, "','"),
		)
		records, err := q.QueryAll(ctx, soql)
		if err != nil {
			log.Printf("[Dedup] query failed for batch: %v", err)
			continue
		}
		for _, r := range records {
			cc, _ := r["AVTRRT__Contact_Candidate__c"].(string)
			jj, _ := r["AVTRRT__Job__c"].(string)
			if cc != "" && jj != "" {
				existing[NewPair(cc, jj)] = true
			}
		}
	}
	return existing
}

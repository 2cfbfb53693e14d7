package utils

import (
	"fmt"

	"gorm.io/gorm"

	"ssrportal/models"
)

// TeamNumberPrefix is the fixed label every team code starts with.
const TeamNumberPrefix = "SSR"

// NumberRange is an inclusive span of sequence numbers.
type NumberRange struct {
	Start int
	End   int
}

// batchRanges maps an academic batch to the sequence ranges its teams may
// occupy. A batch can own several disjoint ranges; they are enumerated in
// the order listed here.
var batchRanges = map[string][]NumberRange{
	"CSE_A": {{1, 13}},
	"CSE_B": {{14, 26}},
	"CSE_C": {{27, 39}, {160, 160}},
	"CSE_D": {{78, 89}, {161, 161}},
	"ECE_A": {{40, 52}},
	"ECE_B": {{53, 65}},
	"EEE_A": {{66, 77}},
	"MECH_A": {{90, 102}},
	"CIVIL_A": {{103, 115}},
	"AIML_A": {{116, 128}},
	"AIML_B": {{129, 141}},
	"CSBS_A": {{142, 154}},
	"IT_A":  {{155, 159}, {162, 170}},
}

// KnownBatch reports whether a batch has a configured number range.
func KnownBatch(batch string) bool {
	_, ok := batchRanges[batch]
	return ok
}

// SuffixInBatch reports whether a sequence number falls inside one of the
// batch's ranges.
func SuffixInBatch(batch string, n int) bool {
	for _, r := range batchRanges[batch] {
		if n >= r.Start && n <= r.End {
			return true
		}
	}
	return false
}

// FormatTeamNumber renders the wire format "<PREFIX> <YY>-<NNN>".
func FormatTeamNumber(year string, n int) string {
	return fmt.Sprintf("%s %s-%03d", TeamNumberPrefix, year, n)
}

// BatchNumbers enumerates every team code a batch may hold, in range order.
func BatchNumbers(batch, year string) ([]string, error) {
	ranges, ok := batchRanges[batch]
	if !ok {
		return nil, NewValidationError(fmt.Sprintf("unknown batch %q", batch))
	}

	var codes []string
	for _, r := range ranges {
		for n := r.Start; n <= r.End; n++ {
			codes = append(codes, FormatTeamNumber(year, n))
		}
	}
	return codes, nil
}

// NextTeamNumber picks the first code in the batch's ranges not yet taken by
// any team. Soft-deleted teams keep their number reserved. Callers run this
// inside the team-creation transaction; the unique index on team_number
// backstops concurrent allocations.
func NextTeamNumber(db *gorm.DB, batch, year string) (string, error) {
	codes, err := BatchNumbers(batch, year)
	if err != nil {
		return "", err
	}

	var taken []string
	if err := db.Model(&models.Team{}).Unscoped().
		Where("batch = ?", batch).
		Pluck("team_number", &taken).Error; err != nil {
		return "", NewInternalError("Failed to load existing team numbers", err)
	}

	used := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		used[t] = struct{}{}
	}

	for _, code := range codes {
		if _, ok := used[code]; !ok {
			return code, nil
		}
	}

	return "", NewConflictError(fmt.Sprintf("no team numbers left for batch %s", batch))
}

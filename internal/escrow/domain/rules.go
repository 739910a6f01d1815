package domain

import "time"

// OpenAt reports whether a campaign still accepts contributions and
// milestones at the given instant. There is no background timer anywhere:
// every command and query recomputes this from the clock it was handed, so
// closing is observed lazily.
func OpenAt(deadline time.Time, deleted bool, now time.Time) bool {
	if deleted {
		return false
	}
	return !now.After(deadline)
}

// Tally recomputes vote counts from the live choice per voter. Keeping the
// map as the source of truth means a re-vote can never leave the counters
// out of sync with "one live vote per contributor".
func Tally(votes map[string]bool) (votesFor, votesAgainst int) {
	for _, approve := range votes {
		if approve {
			votesFor++
		} else {
			votesAgainst++
		}
	}
	return votesFor, votesAgainst
}

// ApprovalReached applies the strict majority-of-voters rule: more approvals
// than rejections, and approvals covering a majority of everyone who voted.
// Ties do not approve.
func ApprovalReached(votesFor, votesAgainst int) bool {
	voters := votesFor + votesAgainst
	if voters == 0 {
		return false
	}
	majority := voters/2 + 1
	return votesFor > votesAgainst && votesFor >= majority
}

// AvailableBalance is the portion of a campaign's raised funds that has been
// neither released to the owner nor refunded to contributors.
func AvailableBalance(totalRaised, totalReleased, totalRefunded int64) int64 {
	return totalRaised - totalReleased - totalRefunded
}

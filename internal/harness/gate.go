package harness

import "git.home.luguber.info/inful/faultwatch/internal/fault"

// applyAcknowledgments consumes acknowledgment budgets against the violating
// records, in capture order, and returns the records no budget covered. An
// acknowledged fault stays in the log and the artifacts; it only stops
// counting against the gate.
func applyAcknowledgments(violations []fault.Record, acks []Acknowledgment) []fault.Record {
	budgets := make([]int, len(acks))
	for i, a := range acks {
		budgets[i] = a.Count
		if budgets[i] <= 0 {
			budgets[i] = 1
		}
	}

	var unacknowledged []fault.Record
	for _, r := range violations {
		consumed := false
		for i, a := range acks {
			if budgets[i] > 0 && a.matches(r) {
				budgets[i]--
				consumed = true
				break
			}
		}
		if !consumed {
			unacknowledged = append(unacknowledged, r)
		}
	}
	return unacknowledged
}

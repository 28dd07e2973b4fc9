package lifecycle

import "wastewatch/pkg/types"

// Reward is the points credited to a worker for a verified completion.
func Reward(severity types.Severity) int {
	switch severity {
	case types.SeverityCritical:
		return 200
	case types.SeverityHigh:
		return 150
	default:
		return 100
	}
}

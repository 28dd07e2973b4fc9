package lifecycle

import "wastewatch/pkg/types"

type Pairing struct {
	Report *types.Report
	Worker *types.Worker
}

// RoundRobin pairs reports[i] with workers[i % len(workers)], keeping the
// order of reports. Either list being empty yields no pairs.
func RoundRobin(reports []*types.Report, workers []*types.Worker) []Pairing {
	if len(reports) == 0 || len(workers) == 0 {
		return nil
	}

	out := make([]Pairing, 0, len(reports))
	for i, report := range reports {
		out = append(out, Pairing{Report: report, Worker: workers[i%len(workers)]})
	}
	return out
}

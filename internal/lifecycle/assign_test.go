package lifecycle

import (
	"fmt"
	"testing"

	"wastewatch/pkg/types"
)

func makeReports(n int) []*types.Report {
	out := make([]*types.Report, n)
	for i := range out {
		out[i] = &types.Report{ID: fmt.Sprintf("r%d", i)}
	}
	return out
}

func makeWorkers(n int) []*types.Worker {
	out := make([]*types.Worker, n)
	for i := range out {
		out[i] = &types.Worker{ID: fmt.Sprintf("w%d", i)}
	}
	return out
}

func TestRoundRobinFiveReportsTwoWorkers(t *testing.T) {
	workers := makeWorkers(2)
	pairs := RoundRobin(makeReports(5), workers)

	want := []int{0, 1, 0, 1, 0}
	if len(pairs) != len(want) {
		t.Fatalf("expected %d pairs, got %d", len(want), len(pairs))
	}
	for i, p := range pairs {
		if p.Report.ID != fmt.Sprintf("r%d", i) {
			t.Fatalf("expected report order preserved at %d, got %s", i, p.Report.ID)
		}
		if p.Worker != workers[want[i]] {
			t.Fatalf("pair %d: expected worker %d, got %s", i, want[i], p.Worker.ID)
		}
	}
}

func TestRoundRobinIndexModulo(t *testing.T) {
	for n := 1; n <= 9; n++ {
		for m := 1; m <= 4; m++ {
			workers := makeWorkers(m)
			for i, p := range RoundRobin(makeReports(n), workers) {
				if p.Worker != workers[i%m] {
					t.Fatalf("n=%d m=%d i=%d: expected worker %d, got %s", n, m, i, i%m, p.Worker.ID)
				}
			}
		}
	}
}

func TestRoundRobinEmptyInputs(t *testing.T) {
	if got := RoundRobin(nil, makeWorkers(2)); got != nil {
		t.Fatalf("expected no pairs without reports, got %v", got)
	}
	if got := RoundRobin(makeReports(3), nil); got != nil {
		t.Fatalf("expected no pairs without workers, got %v", got)
	}
}

func TestReward(t *testing.T) {
	cases := map[types.Severity]int{
		types.SeverityCritical: 200,
		types.SeverityHigh:     150,
		types.SeverityMedium:   100,
		types.SeverityLow:      100,
	}
	for sev, want := range cases {
		if got := Reward(sev); got != want {
			t.Fatalf("severity %s: expected %d, got %d", sev, want, got)
		}
	}
}

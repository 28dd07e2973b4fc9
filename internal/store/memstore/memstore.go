// Package memstore keeps every repository in process memory. It mirrors the
// Postgres repositories, including their conditional updates and sentinel
// errors, and backs both the tests and serve --memory.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wastewatch/internal/utils"
	"wastewatch/pkg/types"
)

type Store struct {
	mu sync.RWMutex

	seq      int64
	reports  map[string]*types.Report
	images   map[string][]*types.ReportImage
	events   map[string][]*types.ReportEvent
	workers  map[string]*types.Worker
	profiles map[string]*types.Profile
	rewards  map[string]*types.WorkerReward

	now func() time.Time
}

func New() *Store {
	return &Store{
		reports:  make(map[string]*types.Report),
		images:   make(map[string][]*types.ReportImage),
		events:   make(map[string][]*types.ReportEvent),
		workers:  make(map[string]*types.Worker),
		profiles: make(map[string]*types.Profile),
		rewards:  make(map[string]*types.WorkerReward),
		now:      time.Now,
	}
}

func copyReport(r *types.Report) *types.Report {
	c := *r
	return &c
}

func (s *Store) CreateReport(_ context.Context, report *types.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	report.ID = utils.NanoID()
	report.Code = utils.ReportCode(s.seq)
	if report.CreatedAt.IsZero() {
		report.CreatedAt = s.now()
	}
	report.UpdatedAt = report.CreatedAt

	s.reports[report.ID] = copyReport(report)
	return nil
}

func (s *Store) Report(_ context.Context, reportID string) (*types.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[reportID]
	if !ok {
		return nil, types.ErrReportNotFound
	}
	return copyReport(r), nil
}

func (s *Store) Reports(_ context.Context, filter types.ReportFilter) ([]*types.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Report, 0)
	for _, r := range s.reports {
		if !matchReport(r, filter) {
			continue
		}
		out = append(out, copyReport(r))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code > out[j].Code
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Limit > 0 && uint64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matchReport(r *types.Report, f types.ReportFilter) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, r.Status) {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Severity != "" && r.Severity != f.Severity {
		return false
	}
	if f.WorkerID != "" && utils.PtrString(r.AssignedWorkerID) != f.WorkerID {
		return false
	}
	if f.ReporterID != "" && utils.PtrString(r.ReporterID) != f.ReporterID {
		return false
	}
	return true
}

func containsStatus(list []types.ReportStatus, s types.ReportStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (s *Store) TransitionReport(_ context.Context, reportID string, transition types.ReportTransition) (*types.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.reports[reportID]
	if !ok {
		return nil, types.ErrReportNotFound
	}
	if !containsStatus(transition.From, current.Status) {
		return nil, types.ErrReportConflict
	}
	if transition.ExpectWorkerID != "" && utils.PtrString(current.AssignedWorkerID) != transition.ExpectWorkerID {
		return nil, types.ErrReportConflict
	}

	next := copyReport(current)
	next.Status = transition.To
	next.UpdatedAt = s.now()

	switch {
	case transition.Assign != nil:
		a := transition.Assign
		next.AssignedWorkerID = utils.StringPtr(a.WorkerID)
		next.AssignedWorkerName = utils.StringPtr(a.WorkerName)
		next.DepartmentID = a.DepartmentID
		next.DepartmentName = a.DepartmentName
		next.AssignedAt = utils.TimePtr(a.AssignedAt)
	case transition.ClearAssignment:
		next.AssignedWorkerID = nil
		next.AssignedWorkerName = nil
		next.DepartmentID = nil
		next.DepartmentName = nil
		next.AssignedAt = nil
		next.VerifiedAt = nil
	}

	if transition.VerifiedAt != nil {
		next.VerifiedAt = utils.TimePtr(*transition.VerifiedAt)
	}
	if transition.ResolvedAt != nil {
		next.ResolvedAt = utils.TimePtr(*transition.ResolvedAt)
	}

	s.reports[reportID] = next
	return copyReport(next), nil
}

func (s *Store) DeleteReport(_ context.Context, reportID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.reports, reportID)
	delete(s.images, reportID)
	return nil
}

func (s *Store) CreateImage(_ context.Context, image *types.ReportImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if image.ID == "" {
		image.ID = utils.NanoID()
	}
	c := *image
	s.images[image.ReportID] = append(s.images[image.ReportID], &c)
	return nil
}

func (s *Store) ImagesByReport(_ context.Context, reportID string) ([]*types.ReportImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedImages(reportID), nil
}

func (s *Store) ImagesByReports(_ context.Context, reportIDs []string) (map[string][]*types.ReportImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]*types.ReportImage, len(reportIDs))
	for _, id := range reportIDs {
		if images := s.sortedImages(id); len(images) > 0 {
			out[id] = images
		}
	}
	return out, nil
}

func (s *Store) sortedImages(reportID string) []*types.ReportImage {
	out := make([]*types.ReportImage, 0, len(s.images[reportID]))
	for _, image := range s.images[reportID] {
		c := *image
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Position < out[j].Position
	})
	return out
}

func (s *Store) DeleteImagesByReport(_ context.Context, reportID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.images, reportID)
	return nil
}

func (s *Store) RecordEvent(_ context.Context, event *types.ReportEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.ID = utils.NanoID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	c := *event
	s.events[event.ReportID] = append(s.events[event.ReportID], &c)
	return nil
}

func (s *Store) EventsByReport(_ context.Context, reportID string) ([]*types.ReportEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.ReportEvent, 0, len(s.events[reportID]))
	for _, e := range s.events[reportID] {
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

func (s *Store) CreateWorker(_ context.Context, worker *types.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workers[worker.ID]; ok {
		return types.ErrWorkerExists
	}

	now := s.now()
	worker.CreatedAt = now
	worker.UpdatedAt = now
	c := *worker
	s.workers[worker.ID] = &c
	return nil
}

func (s *Store) Worker(_ context.Context, workerID string) (*types.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workers[workerID]
	if !ok {
		return nil, types.ErrWorkerNotFound
	}
	c := *w
	return &c, nil
}

func (s *Store) Workers(_ context.Context, filter types.WorkerFilter) ([]*types.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Worker, 0)
	for _, w := range s.workers {
		if len(filter.Statuses) > 0 && !containsWorkerStatus(filter.Statuses, w.Status) {
			continue
		}
		if filter.Zone != "" && utils.PtrString(w.Zone) != filter.Zone {
			continue
		}
		c := *w
		out = append(out, &c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func containsWorkerStatus(list []types.WorkerStatus, s types.WorkerStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (s *Store) UpdateWorkerStatus(_ context.Context, workerID string, from []types.WorkerStatus, to types.WorkerStatus) (*types.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workers[workerID]
	if !ok {
		return nil, types.ErrWorkerNotFound
	}
	if !containsWorkerStatus(from, w.Status) {
		return nil, fmt.Errorf("%w: worker is %s", types.ErrInvalidTransition, w.Status)
	}

	next := *w
	next.Status = to
	next.UpdatedAt = s.now()
	s.workers[workerID] = &next

	c := next
	return &c, nil
}

func (s *Store) Profile(_ context.Context, userID string) (*types.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, types.ErrProfileNotFound
	}
	c := *p
	return &c, nil
}

func (s *Store) profileLocked(userID string) *types.Profile {
	p, ok := s.profiles[userID]
	if !ok {
		now := s.now()
		p = &types.Profile{ID: userID, CreatedAt: now, UpdatedAt: now}
		s.profiles[userID] = p
	}
	return p
}

func (s *Store) UpsertIdentity(_ context.Context, userID, email, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.profileLocked(userID)
	if v := utils.NullableString(email); v != nil {
		p.Email = v
	}
	if v := utils.NullableString(displayName); v != nil && p.DisplayName == nil {
		p.DisplayName = v
	}
	p.UpdatedAt = s.now()
	return nil
}

func (s *Store) CreditSubmission(_ context.Context, userID string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.profileLocked(userID)
	p.Points += points
	p.ReportsSubmitted++
	p.UpdatedAt = s.now()
	return nil
}

func (s *Store) CreditResolution(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return types.ErrProfileNotFound
	}
	p.ReportsResolved++
	p.UpdatedAt = s.now()
	return nil
}

func (s *Store) CreateReward(_ context.Context, reward *types.WorkerReward) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rewards {
		if existing.ReportID == reward.ReportID {
			return fmt.Errorf("%w: report %s already rewarded", types.ErrReportConflict, reward.ReportID)
		}
	}

	reward.ID = utils.NanoID()
	reward.CreatedAt = s.now()
	c := *reward
	s.rewards[reward.ID] = &c
	return nil
}

func (s *Store) RewardsByWorker(_ context.Context, workerID string) ([]*types.WorkerReward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.WorkerReward, 0)
	for _, r := range s.rewards {
		if r.WorkerID != workerID {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) MarkRewardPaid(_ context.Context, rewardID, transferID string, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rewards[rewardID]
	if !ok {
		return nil
	}
	r.PayoutTransferID = utils.StringPtr(transferID)
	r.PaidAt = utils.TimePtr(paidAt)
	return nil
}

package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memoryRepo implements RepositoryPort and TxRepository with the same
// conditional-update semantics as the SQL repository.
type memoryRepo struct {
	mu       sync.Mutex
	requests map[int64]*Request
	steps    map[int64]*ApprovalStep
	nextReq  int64
	nextStep int64
	reqLoads int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		requests: make(map[int64]*Request),
		steps:    make(map[int64]*ApprovalStep),
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) CreateRequest(ctx context.Context, req *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextReq++
	req.ID = m.nextReq
	req.Status = StatusPending
	req.SubmittedAt = time.Now()
	clone := *req
	m.requests[req.ID] = &clone
	return nil
}

func (m *memoryRepo) CreateSteps(ctx context.Context, steps []ApprovalStep) ([]ApprovalStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := make([]ApprovalStep, 0, len(steps))
	for _, step := range steps {
		m.nextStep++
		step.ID = m.nextStep
		step.Status = StatusPending
		clone := step
		m.steps[step.ID] = &clone
		created = append(created, step)
	}
	return created, nil
}

func (m *memoryRepo) GetRequest(ctx context.Context, id int64) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqLoads++
	req, ok := m.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return *req, nil
}

func (m *memoryRepo) requestLoads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reqLoads
}

func (m *memoryRepo) GetStep(ctx context.Context, stepID int64) (ApprovalStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	step, ok := m.steps[stepID]
	if !ok {
		return ApprovalStep{}, ErrNotFound
	}
	return *step, nil
}

func (m *memoryRepo) ListSteps(ctx context.Context, requestID int64) ([]ApprovalStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []ApprovalStep
	for level := 1; level <= len(m.steps); level++ {
		for _, step := range m.steps {
			if step.RequestID == requestID && step.Level == level {
				result = append(result, *step)
			}
		}
	}
	return result, nil
}

func (m *memoryRepo) ListRequests(ctx context.Context, filter ListFilter) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Request
	for _, req := range m.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Type != "" && req.Type != filter.Type {
			continue
		}
		if filter.RequestedBy != 0 && req.RequestedBy != filter.RequestedBy {
			continue
		}
		result = append(result, *req)
	}
	return result, nil
}

func (m *memoryRepo) ListActionableForApprover(ctx context.Context, approverID int64) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Request
	for _, req := range m.requests {
		if req.Status != StatusPending {
			continue
		}
		for _, step := range m.steps {
			if step.RequestID == req.ID && step.ApproverID == approverID &&
				step.Status == StatusPending && m.lowerApprovedLocked(step) {
				result = append(result, *req)
				break
			}
		}
	}
	return result, nil
}

func (m *memoryRepo) lowerApprovedLocked(step *ApprovalStep) bool {
	for _, other := range m.steps {
		if other.RequestID == step.RequestID && other.Level < step.Level && other.Status != StatusApproved {
			return false
		}
	}
	return true
}

func (m *memoryRepo) ApproveStepGated(ctx context.Context, stepID, approverID int64, comment string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	step, ok := m.steps[stepID]
	if !ok || step.ApproverID != approverID || step.Status != StatusPending || !m.lowerApprovedLocked(step) {
		return false, nil
	}
	now := time.Now()
	step.Status = StatusApproved
	step.Comments = comment
	step.ProcessedAt = &now
	return true, nil
}

func (m *memoryRepo) RejectStepPending(ctx context.Context, stepID, approverID int64, comment string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	step, ok := m.steps[stepID]
	if !ok || step.ApproverID != approverID || step.Status != StatusPending {
		return false, nil
	}
	now := time.Now()
	step.Status = StatusRejected
	step.Comments = comment
	step.ProcessedAt = &now
	return true, nil
}

func (m *memoryRepo) CascadeRejectPending(ctx context.Context, requestID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	now := time.Now()
	for _, step := range m.steps {
		if step.RequestID == requestID && step.Status == StatusPending {
			step.Status = StatusRejected
			step.Comments = CascadeComment
			step.ProcessedAt = &now
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) ApproveAllPending(ctx context.Context, requestID int64, comment string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	now := time.Now()
	for _, step := range m.steps {
		if step.RequestID == requestID && step.Status == StatusPending {
			step.Status = StatusApproved
			step.Comments = comment
			step.ProcessedAt = &now
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) CountNotApproved(ctx context.Context, requestID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, step := range m.steps {
		if step.RequestID == requestID && step.Status != StatusApproved {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) MarkRequestProcessed(ctx context.Context, requestID int64, status Status, actorID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok || req.Status != StatusPending {
		return false, nil
	}
	now := time.Now()
	req.Status = status
	req.ApprovedBy = &actorID
	req.ProcessedAt = &now
	return true, nil
}

// fakeEffect counts applications and can be told to fail.
type fakeEffect struct {
	mu      sync.Mutex
	applied []int64
	fail    bool
}

func (f *fakeEffect) Apply(ctx context.Context, req Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("effect boom")
	}
	f.applied = append(f.applied, req.ID)
	return nil
}

func (f *fakeEffect) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applied)
}

type recordingHandler struct {
	mu       sync.Mutex
	approved []ApprovedEvent
	rejected []RejectedEvent
}

func (h *recordingHandler) HandleRequestApproved(ctx context.Context, evt ApprovedEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.approved = append(h.approved, evt)
	return nil
}

func (h *recordingHandler) HandleRequestRejected(ctx context.Context, evt RejectedEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejected = append(h.rejected, evt)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func seedChain(t *testing.T, repo *memoryRepo, approvers ...int64) (Request, []ApprovalStep) {
	t.Helper()
	req := Request{Type: TypePromotion, RequestedRole: "Manager", RequestedBy: 99}
	require.NoError(t, repo.CreateRequest(context.Background(), &req))
	steps := make([]ApprovalStep, 0, len(approvers))
	for i, approver := range approvers {
		steps = append(steps, ApprovalStep{RequestID: req.ID, Level: i + 1, ApproverID: approver})
	}
	created, err := repo.CreateSteps(context.Background(), steps)
	require.NoError(t, err)
	return req, created
}

func TestEngineApproveOutOfOrder(t *testing.T) {
	repo := newMemoryRepo()
	engine := NewEngine(repo, &fakeEffect{}, nil, testLogger())
	_, steps := seedChain(t, repo, 10, 20)

	_, err := engine.Approve(context.Background(), 20, steps[1].ID, "lgtm")
	require.ErrorIs(t, err, ErrStepLocked)
}

func TestEngineApproveWrongOwner(t *testing.T) {
	repo := newMemoryRepo()
	engine := NewEngine(repo, &fakeEffect{}, nil, testLogger())
	_, steps := seedChain(t, repo, 10, 20)

	_, err := engine.Approve(context.Background(), 20, steps[0].ID, "")
	require.ErrorIs(t, err, ErrNotApprover)
}

func TestEngineApproveTwice(t *testing.T) {
	repo := newMemoryRepo()
	engine := NewEngine(repo, &fakeEffect{}, nil, testLogger())
	_, steps := seedChain(t, repo, 10, 20)

	_, err := engine.Approve(context.Background(), 10, steps[0].ID, "ok")
	require.NoError(t, err)
	_, err = engine.Approve(context.Background(), 10, steps[0].ID, "again")
	require.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestEngineApproveCompletesChain(t *testing.T) {
	repo := newMemoryRepo()
	effect := &fakeEffect{}
	handler := &recordingHandler{}
	engine := NewEngine(repo, effect, nil, testLogger())
	engine.OnApproved(handler)
	req, steps := seedChain(t, repo, 10, 20)

	mid, err := engine.Approve(context.Background(), 10, steps[0].ID, "fine")
	require.NoError(t, err)
	require.Equal(t, StatusPending, mid.Status)
	require.Zero(t, effect.count())

	final, err := engine.Approve(context.Background(), 20, steps[1].ID, "approved")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, final.Status)
	require.NotNil(t, final.ApprovedBy)
	require.Equal(t, int64(20), *final.ApprovedBy)
	require.Equal(t, 1, effect.count())
	require.Len(t, handler.approved, 1)
	require.Equal(t, req.ID, handler.approved[0].Request.ID)
}

func TestEngineMidChainApproveLoadsRequestOnce(t *testing.T) {
	repo := newMemoryRepo()
	engine := NewEngine(repo, &fakeEffect{}, nil, testLogger())
	_, steps := seedChain(t, repo, 10, 20)

	mid, err := engine.Approve(context.Background(), 10, steps[0].ID, "ok")
	require.NoError(t, err)
	require.Equal(t, StatusPending, mid.Status)
	require.Equal(t, 1, repo.requestLoads())
}

func TestEngineConcurrentFinalApproval(t *testing.T) {
	repo := newMemoryRepo()
	effect := &fakeEffect{}
	engine := NewEngine(repo, effect, nil, testLogger())
	_, steps := seedChain(t, repo, 10)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Approve(context.Background(), 10, steps[0].ID, "race")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrAlreadyProcessed)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, effect.count())
}

func TestEngineRejectCascades(t *testing.T) {
	repo := newMemoryRepo()
	effect := &fakeEffect{}
	handler := &recordingHandler{}
	engine := NewEngine(repo, effect, nil, testLogger())
	engine.OnRejected(handler)
	req, steps := seedChain(t, repo, 10, 20, 30)

	rejected, err := engine.Reject(context.Background(), 10, steps[0].ID, "not justified")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.Zero(t, effect.count())

	all, err := repo.ListSteps(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "not justified", all[0].Comments)
	for _, step := range all {
		require.Equal(t, StatusRejected, step.Status)
	}
	for _, step := range all[1:] {
		require.Equal(t, CascadeComment, step.Comments)
	}
	require.Len(t, handler.rejected, 1)
	require.Equal(t, "not justified", handler.rejected[0].Comment)
}

func TestEngineRejectAfterTerminal(t *testing.T) {
	repo := newMemoryRepo()
	engine := NewEngine(repo, &fakeEffect{}, nil, testLogger())
	_, steps := seedChain(t, repo, 10)

	_, err := engine.Approve(context.Background(), 10, steps[0].ID, "")
	require.NoError(t, err)
	_, err = engine.Reject(context.Background(), 10, steps[0].ID, "late")
	require.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestEngineEscalate(t *testing.T) {
	repo := newMemoryRepo()
	effect := &fakeEffect{}
	handler := &recordingHandler{}
	engine := NewEngine(repo, effect, nil, testLogger())
	engine.OnApproved(handler)
	req, _ := seedChain(t, repo, 10, 20)

	done, err := engine.Escalate(context.Background(), req, 99)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, done.Status)
	require.Equal(t, 1, effect.count())

	all, err := repo.ListSteps(context.Background(), req.ID)
	require.NoError(t, err)
	for _, step := range all {
		require.Equal(t, StatusApproved, step.Status)
		require.Equal(t, AutoApproveComment, step.Comments)
	}
	require.Len(t, handler.approved, 1)
}

func TestEngineEscalateEffectFailureLeavesPending(t *testing.T) {
	repo := newMemoryRepo()
	effect := &fakeEffect{fail: true}
	engine := NewEngine(repo, effect, nil, testLogger())
	req, _ := seedChain(t, repo, 10, 20)

	still, err := engine.Escalate(context.Background(), req, 99)
	require.NoError(t, err)
	require.Equal(t, StatusPending, still.Status)

	all, err := repo.ListSteps(context.Background(), req.ID)
	require.NoError(t, err)
	for _, step := range all {
		require.Equal(t, StatusPending, step.Status)
	}
}

package service

import (
	"context"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/siakad-krs-api/internal/dto"
	"github.com/noah-isme/siakad-krs-api/internal/models"
	appErrors "github.com/noah-isme/siakad-krs-api/pkg/errors"
)

func newTestKRSService(f *krsFixture) *KRSService {
	return NewKRSService(f.store, f.students, f.periods, f.courses, f.audit, NewMetricsService(), validator.New(), zap.NewNop(), KRSConfig{MaxSKS: 24})
}

func newTestApprovalService(f *krsFixture) *ApprovalService {
	return NewApprovalService(f.store, f.periods, f.audit, NewMetricsService(), validator.New(), zap.NewNop())
}

func createReq(courseID string) dto.CreateKRSRequest {
	return dto.CreateKRSRequest{StudentID: "stu-1", PeriodID: "per-odd", CourseID: courseID}
}

var oddScope = dto.KRSScopeRequest{StudentID: "stu-1", PeriodID: "per-odd"}

func TestKRSServiceCreateDraft(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)

	detail, err := svc.Create(context.Background(), studentActor, createReq("c1"))
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusDraft, detail.Status)
	assert.Equal(t, 3, detail.CourseCredits)
	assert.NotEmpty(t, detail.ID)
	assert.Equal(t, []string{models.AuditActionKRSCreate}, f.audit.recorded())
}

func TestKRSServiceCreateDuplicate(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)

	_, err := svc.Create(context.Background(), studentActor, createReq("c1"))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), studentActor, createReq("c1"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateRecord))
	assert.Equal(t, 1, f.store.count())
}

func TestKRSServiceCreditCeiling(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)
	f.store.seed("stu-1", "per-odd", "big", models.EnrollmentStatusDraft)
	f.store.seed("stu-1", "per-odd", "c2", models.EnrollmentStatusDraft)

	_, err := svc.Create(context.Background(), studentActor, createReq("c3"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCreditLimitExceeded))

	_, err = svc.Create(context.Background(), studentActor, createReq("c2b"))
	require.NoError(t, err)

	summary, err := svc.List(context.Background(), studentActor, "stu-1", "per-odd")
	require.NoError(t, err)
	assert.Equal(t, 24, summary.TotalSKS)
	assert.Equal(t, 24, summary.MaxSKS)
}

func TestKRSServiceProgramEligibility(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)

	_, err := svc.Create(context.Background(), studentActor, createReq("si-1"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrIneligibleProgram))

	detail, err := svc.Create(context.Background(), studentActor, createReq("mbkm-1"))
	require.NoError(t, err)
	assert.Equal(t, models.CourseCategoryMBKM, detail.CourseCategory)
}

func TestKRSServiceCreateRejectsOtherParity(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)

	_, err := svc.Create(context.Background(), studentActor, createReq("ev-1"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestKRSServiceCreateLockedAfterSubmit(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)

	_, err := svc.Create(context.Background(), studentActor, createReq("c1"))
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), studentActor, oddScope)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), studentActor, createReq("c2"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrLockedRecord))
}

func TestKRSServiceSubmitApproveLifecycle(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)
	approvals := newTestApprovalService(f)
	ctx := context.Background()

	var ids []string
	for _, courseID := range []string{"c1", "c2", "c3", "c4", "c5"} {
		detail, err := svc.Create(ctx, studentActor, createReq(courseID))
		require.NoError(t, err)
		ids = append(ids, detail.ID)
	}

	submitted, err := svc.Submit(ctx, studentActor, oddScope)
	require.NoError(t, err)
	assert.Equal(t, 5, submitted.Affected)
	for _, st := range f.store.statuses("stu-1", "per-odd") {
		assert.Equal(t, models.EnrollmentStatusSubmitted, st)
	}

	approved, err := approvals.Approve(ctx, adminActor, oddScope)
	require.NoError(t, err)
	assert.Equal(t, 5, approved.Affected)
	for _, st := range f.store.statuses("stu-1", "per-odd") {
		assert.Equal(t, models.EnrollmentStatusApproved, st)
	}

	for _, id := range ids {
		err := svc.Delete(ctx, studentActor, id)
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrLockedRecord))
	}
	assert.Equal(t, 5, f.store.count())
}

func TestKRSServiceSubmitNothing(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)

	_, err := svc.Submit(context.Background(), studentActor, oddScope)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNothingToSubmit))
}

func TestKRSServiceDelete(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)
	draft := f.store.seed("stu-1", "per-odd", "c1", models.EnrollmentStatusDraft)

	require.NoError(t, svc.Delete(context.Background(), studentActor, draft))
	assert.Equal(t, 0, f.store.count())

	submitted := f.store.seed("stu-1", "per-odd", "c2", models.EnrollmentStatusSubmitted)
	err := svc.Delete(context.Background(), studentActor, submitted)
	assert.True(t, appErrors.Is(err, appErrors.ErrLockedRecord))

	err = svc.Delete(context.Background(), studentActor, "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestKRSServiceRejectReopensEditing(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)
	approvals := newTestApprovalService(f)
	ctx := context.Background()

	first, err := svc.Create(ctx, studentActor, createReq("c1"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, studentActor, createReq("c2"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, studentActor, oddScope)
	require.NoError(t, err)

	rejected, err := approvals.Reject(ctx, adminActor, oddScope)
	require.NoError(t, err)
	assert.Equal(t, 2, rejected.Affected)

	require.NoError(t, svc.Delete(ctx, studentActor, first.ID))
	_, err = svc.Create(ctx, studentActor, createReq("c3"))
	require.NoError(t, err)

	resubmitted, err := svc.Submit(ctx, studentActor, oddScope)
	require.NoError(t, err)
	assert.Equal(t, 2, resubmitted.Affected)
	assert.Equal(t, map[string]models.EnrollmentStatus{
		"c2": models.EnrollmentStatusSubmitted,
		"c3": models.EnrollmentStatusSubmitted,
	}, f.store.statuses("stu-1", "per-odd"))
}

func TestKRSServiceOwnership(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)

	_, err := svc.Create(context.Background(), studentActor, dto.CreateKRSRequest{StudentID: "stu-3", PeriodID: "per-odd", CourseID: "si-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.List(context.Background(), nil, "stu-1", "per-odd")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.Create(context.Background(), adminActor, dto.CreateKRSRequest{StudentID: "stu-3", PeriodID: "per-odd", CourseID: "si-1"})
	assert.NoError(t, err)
}

func TestKRSServiceClosedPeriod(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)
	req := dto.CreateKRSRequest{StudentID: "stu-1", PeriodID: "per-closed", CourseID: "c1"}

	_, err := svc.Create(context.Background(), studentActor, req)
	assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))

	_, err = svc.Create(context.Background(), adminActor, req)
	assert.NoError(t, err)
}

func TestKRSServiceInactiveStudent(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)

	_, err := svc.Create(context.Background(), adminActor, dto.CreateKRSRequest{StudentID: "stu-4", PeriodID: "per-odd", CourseID: "c1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))
}

func TestKRSServiceValidation(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)

	_, err := svc.Create(context.Background(), studentActor, dto.CreateKRSRequest{StudentID: "stu-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestKRSServiceListOfferings(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)
	taken := f.store.seed("stu-1", "per-odd", "c1", models.EnrollmentStatusDraft)

	offerings, err := svc.ListOfferings(context.Background(), studentActor, "stu-1", "per-odd")
	require.NoError(t, err)

	byID := map[string]models.CourseOffering{}
	for _, o := range offerings {
		byID[o.ID] = o
	}
	assert.NotContains(t, byID, "si-1")
	assert.NotContains(t, byID, "ev-1")
	assert.Contains(t, byID, "mbkm-1")
	require.Contains(t, byID, "c1")
	assert.True(t, byID["c1"].IsTaken)
	require.NotNil(t, byID["c1"].EnrollmentID)
	assert.Equal(t, taken, *byID["c1"].EnrollmentID)
	assert.False(t, byID["c2"].IsTaken)
	assert.Nil(t, byID["c2"].Status)
}

func TestKRSServiceConcurrentCreateSameCourse(t *testing.T) {
	f := newKRSFixture()
	svc := newTestKRSService(f)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		duplicate int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), studentActor, createReq("c1"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else if appErrors.Is(err, appErrors.ErrDuplicateRecord) {
				duplicate++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, duplicate)
}

package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnpath-backend-go/internal/services"
)

func TestMergeEnrolleeStatuses(t *testing.T) {
	enrollees := []services.CourseEnrollee{
		{UserID: "u1", FullName: "Ana", Progress: 40},
		{UserID: "u2", FullName: "Ion", Progress: 10},
		{UserID: "u3", FullName: "Dan", Progress: 0},
	}
	reason := "Tab hidden for 90s"
	statuses := []services.LearnerStatus{
		{UserID: "u1", DerivedStatus: services.StatusAttentionDrift, StatusReason: &reason, LastEventAt: time.Now().UTC()},
		{UserID: "u2", DerivedStatus: services.StatusUnknown, StatusReason: nil, LastEventAt: time.Now().UTC()},
	}

	merged := mergeEnrolleeStatuses(enrollees, statuses)
	require.Len(t, merged, 3)

	assert.Equal(t, services.StatusAttentionDrift, merged[0].DerivedStatus)
	assert.Equal(t, reason, merged[0].StatusReason)

	// A learner whose window carries no tagged event has no reason to show.
	assert.Equal(t, services.StatusUnknown, merged[1].DerivedStatus)
	assert.Empty(t, merged[1].StatusReason)

	// A learner with no telemetry at all keeps an empty label.
	assert.Empty(t, merged[2].DerivedStatus)
	assert.Empty(t, merged[2].StatusReason)
	assert.Equal(t, 0, merged[2].Progress)
}

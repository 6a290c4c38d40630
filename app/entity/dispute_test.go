package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisputeStageNext(t *testing.T) {
	next, ok := StageStaffReview.Next()
	require.True(t, ok)
	require.Equal(t, StageDoctorReview, next)

	next, ok = StageDoctorReview.Next()
	require.True(t, ok)
	require.Equal(t, StageAdminReview, next)

	_, ok = StageAdminReview.Next()
	require.False(t, ok)
	_, ok = StageResolved.Next()
	require.False(t, ok)
}

func TestStageRankMatchesActorRank(t *testing.T) {
	require.Equal(t, ActorStaff.Rank(), StageStaffReview.Rank())
	require.Equal(t, ActorDoctor.Rank(), StageDoctorReview.Rank())
	require.Equal(t, ActorAdmin.Rank(), StageAdminReview.Rank())
	require.Zero(t, ActorPatient.Rank())
}

func TestResolutionTerminal(t *testing.T) {
	require.False(t, ResolutionOpen.Terminal())
	require.False(t, ResolutionAdminPending.Terminal())
	for _, r := range []ResolutionStatus{ResolutionPatientFavored, ResolutionPracticeFavored, ResolutionClosed, ResolutionUpheld} {
		require.True(t, r.Terminal(), r)
	}
}

func TestParseActorKind(t *testing.T) {
	kind, ok := ParseActorKind(" doctor ")
	require.True(t, ok)
	require.Equal(t, ActorDoctor, kind)

	_, ok = ParseActorKind("nurse")
	require.False(t, ok)
}

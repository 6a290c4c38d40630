package entity

import "time"

type DisputeStage string

const (
	StageStaffReview  DisputeStage = "STAFF_REVIEW"
	StageDoctorReview DisputeStage = "DOCTOR_REVIEW"
	StageAdminReview  DisputeStage = "ADMIN_REVIEW"
	StageResolved     DisputeStage = "RESOLVED"
)

type ResolutionStatus string

const (
	ResolutionOpen            ResolutionStatus = "OPEN"
	ResolutionPatientFavored  ResolutionStatus = "PATIENT_FAVORED"
	ResolutionPracticeFavored ResolutionStatus = "PRACTICE_FAVORED"
	ResolutionAdminPending    ResolutionStatus = "ADMIN_PENDING"
	ResolutionClosed          ResolutionStatus = "CLOSED"
	ResolutionUpheld          ResolutionStatus = "UPHELD"
)

func (s DisputeStage) Valid() bool {
	switch s {
	case StageStaffReview, StageDoctorReview, StageAdminReview, StageResolved:
		return true
	default:
		return false
	}
}

// Next returns the tier above s. Only review stages below ADMIN_REVIEW have one.
func (s DisputeStage) Next() (DisputeStage, bool) {
	switch s {
	case StageStaffReview:
		return StageDoctorReview, true
	case StageDoctorReview:
		return StageAdminReview, true
	default:
		return "", false
	}
}

func (s DisputeStage) Rank() int {
	switch s {
	case StageStaffReview:
		return ActorStaff.Rank()
	case StageDoctorReview:
		return ActorDoctor.Rank()
	case StageAdminReview:
		return ActorAdmin.Rank()
	default:
		return 0
	}
}

func (r ResolutionStatus) Valid() bool {
	switch r {
	case ResolutionOpen, ResolutionPatientFavored, ResolutionPracticeFavored,
		ResolutionAdminPending, ResolutionClosed, ResolutionUpheld:
		return true
	default:
		return false
	}
}

func (r ResolutionStatus) Terminal() bool {
	switch r {
	case ResolutionPatientFavored, ResolutionPracticeFavored, ResolutionClosed, ResolutionUpheld:
		return true
	default:
		return false
	}
}

type PaymentDispute struct {
	ID             uint64
	VerificationID uint64
	PaymentID      uint64

	Stage            DisputeStage
	ResolutionStatus ResolutionStatus

	RaisedByUserID string
	RaisedByKind   ActorKind
	Notes          *string

	ResolvedByUserID *string
	ResolvedAt       *time.Time

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d *PaymentDispute) Open() bool {
	return d.Stage != StageResolved
}

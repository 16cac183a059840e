package entities

// Stage is the pipeline position of a Job.
//
// Stage values are persisted verbatim and shared with the frontend, so they must
// never be renamed. CONTRACT_SIGNED is kept for legacy documents only; the UI no
// longer offers it but stored jobs may still carry it.
type Stage string

const (
	StageAppointmentScheduled Stage = "APPOINTMENT_SCHEDULED"
	StageEstimateInProgress   Stage = "ESTIMATE_IN_PROGRESS"
	StageEstimateSent         Stage = "ESTIMATE_SENT"
	StageEngagedDesignReview  Stage = "ENGAGED_DESIGN_REVIEW"
	StageContractOut          Stage = "CONTRACT_OUT"
	StageContractSigned       Stage = "CONTRACT_SIGNED"
	StageDepositPending       Stage = "DEPOSIT_PENDING"
	StageJobPrep              Stage = "JOB_PREP"
	StageTakeoffComplete      Stage = "TAKEOFF_COMPLETE"
	StageReadyToSchedule      Stage = "READY_TO_SCHEDULE"
	StageScheduled            Stage = "SCHEDULED"
	StageInProduction         Stage = "IN_PRODUCTION"
	StageInstalled            Stage = "INSTALLED"
	StageFinalPaymentClosed   Stage = "FINAL_PAYMENT_CLOSED"
)

// DefaultStage is assigned to jobs created without an explicit stage.
const DefaultStage = StageEstimateInProgress

var stageOrder = []Stage{
	StageAppointmentScheduled,
	StageEstimateInProgress,
	StageEstimateSent,
	StageEngagedDesignReview,
	StageContractOut,
	StageContractSigned,
	StageDepositPending,
	StageJobPrep,
	StageTakeoffComplete,
	StageReadyToSchedule,
	StageScheduled,
	StageInProduction,
	StageInstalled,
	StageFinalPaymentClosed,
}

var stageLabels = map[Stage]string{
	StageAppointmentScheduled: "Appointment Scheduled",
	StageEstimateInProgress:   "Estimate In Progress",
	StageEstimateSent:         "Estimate Sent",
	StageEngagedDesignReview:  "Engaged / Design Review",
	StageContractOut:          "Contract Out",
	StageContractSigned:       "Contract Signed",
	StageDepositPending:       "Deposit Pending",
	StageJobPrep:              "Job Prep",
	StageTakeoffComplete:      "Takeoff Complete",
	StageReadyToSchedule:      "Ready to Schedule",
	StageScheduled:            "Scheduled",
	StageInProduction:         "In Production",
	StageInstalled:            "Installed",
	StageFinalPaymentClosed:   "Final Payment Closed",
}

// Stages returns every stage in pipeline order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// ParseStage returns the stage named by s and whether it is a member of the enum.
func ParseStage(s string) (Stage, bool) {
	st := Stage(s)
	return st, st.Valid()
}

func (s Stage) Valid() bool {
	_, ok := stageLabels[s]
	return ok
}

// Label is the human readable name used in notes and activity summaries.
// Unknown values fall back to the raw string.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s Stage) String() string {
	return string(s)
}

package entities

import "time"

// Job is a unit of sales/production work for one Customer.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (stage-index): stage
//   - GSI2 (customerId-index): customerId
//
// Field names are the persisted contract and match the frontend payloads.
// Sub-documents are optional: a nil pointer means the job never had one.
type Job struct {
	ID         string `json:"id" dynamodbav:"id"`
	CustomerID string `json:"customerId" dynamodbav:"customerId"`
	Stage      Stage  `json:"stage" dynamodbav:"stage"`

	ValueEstimated  float64 `json:"valueEstimated" dynamodbav:"valueEstimated"`
	ValueContracted float64 `json:"valueContracted" dynamodbav:"valueContracted"`

	Appointment  *Appointment  `json:"appointment,omitempty" dynamodbav:"appointment,omitempty"`
	Estimate     *Estimate     `json:"estimate,omitempty" dynamodbav:"estimate,omitempty"`
	Contract     *Contract     `json:"contract,omitempty" dynamodbav:"contract,omitempty"`
	Takeoff      *Takeoff      `json:"takeoff,omitempty" dynamodbav:"takeoff,omitempty"`
	Schedule     *Schedule     `json:"schedule,omitempty" dynamodbav:"schedule,omitempty"`
	Calendar     *Calendar     `json:"calendar,omitempty" dynamodbav:"calendar,omitempty"`
	FinalPayment *FinalPayment `json:"finalPayment,omitempty" dynamodbav:"finalPayment,omitempty"`

	Notes []Note `json:"notes" dynamodbav:"notes"`

	IsArchived bool       `json:"isArchived" dynamodbav:"isArchived"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty" dynamodbav:"archivedAt,omitempty"`
	ArchivedBy string     `json:"archivedBy,omitempty" dynamodbav:"archivedBy,omitempty"`

	IsDeadEstimate        bool       `json:"isDeadEstimate" dynamodbav:"isDeadEstimate"`
	MovedToDeadEstimateAt *time.Time `json:"movedToDeadEstimateAt,omitempty" dynamodbav:"movedToDeadEstimateAt,omitempty"`

	CreatedBy string    `json:"createdBy" dynamodbav:"createdBy"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
	Version   int64     `json:"version" dynamodbav:"version"`
}

type Appointment struct {
	Date     *time.Time `json:"date,omitempty" dynamodbav:"date,omitempty"`
	Time     string     `json:"time,omitempty" dynamodbav:"time,omitempty"`
	Location string     `json:"location,omitempty" dynamodbav:"location,omitempty"`
	Notes    string     `json:"notes,omitempty" dynamodbav:"notes,omitempty"`
}

type Estimate struct {
	Amount    float64            `json:"amount" dynamodbav:"amount"`
	SentAt    *time.Time         `json:"sentAt,omitempty" dynamodbav:"sentAt,omitempty"`
	LineItems []EstimateLineItem `json:"lineItems,omitempty" dynamodbav:"lineItems,omitempty"`
}

type EstimateLineItem struct {
	Description string  `json:"description" dynamodbav:"description"`
	Quantity    float64 `json:"quantity" dynamodbav:"quantity"`
	UnitPrice   float64 `json:"unitPrice" dynamodbav:"unitPrice"`
}

type Contract struct {
	SignedAt          *time.Time `json:"signedAt,omitempty" dynamodbav:"signedAt,omitempty"`
	DepositAmount     float64    `json:"depositAmount" dynamodbav:"depositAmount"`
	DepositPaidAmount float64    `json:"depositPaidAmount" dynamodbav:"depositPaidAmount"`
	DepositDate       *time.Time `json:"depositDate,omitempty" dynamodbav:"depositDate,omitempty"`
}

type Takeoff struct {
	CompletedAt *time.Time `json:"completedAt,omitempty" dynamodbav:"completedAt,omitempty"`
	CompletedBy string     `json:"completedBy,omitempty" dynamodbav:"completedBy,omitempty"`
	Notes       string     `json:"notes,omitempty" dynamodbav:"notes,omitempty"`
}

type Schedule struct {
	StartDate      *time.Time `json:"startDate,omitempty" dynamodbav:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty" dynamodbav:"endDate,omitempty"`
	Installer      string     `json:"installer,omitempty" dynamodbav:"installer,omitempty"`
	RecurrenceRule string     `json:"recurrenceRule,omitempty" dynamodbav:"recurrenceRule,omitempty"`
}

// Calendar tracks the external calendar mirror of the schedule. Syncing itself
// happens elsewhere; the job only records the outcome.
type Calendar struct {
	SyncStatus      string     `json:"syncStatus,omitempty" dynamodbav:"syncStatus,omitempty"`
	ExternalEventID string     `json:"externalEventId,omitempty" dynamodbav:"externalEventId,omitempty"`
	LastSyncedAt    *time.Time `json:"lastSyncedAt,omitempty" dynamodbav:"lastSyncedAt,omitempty"`
}

type FinalPayment struct {
	AmountDue         float64    `json:"amountDue" dynamodbav:"amountDue"`
	AmountPaid        float64    `json:"amountPaid" dynamodbav:"amountPaid"`
	PaidAt            *time.Time `json:"paidAt,omitempty" dynamodbav:"paidAt,omitempty"`
	Method            string     `json:"method,omitempty" dynamodbav:"method,omitempty"`
	ProviderPaymentID string     `json:"providerPaymentId,omitempty" dynamodbav:"providerPaymentId,omitempty"`
}

// Note is an entry of the job's append-only notes log.
type Note struct {
	ID            string    `json:"id" dynamodbav:"id"`
	Content       string    `json:"content" dynamodbav:"content"`
	CreatedBy     string    `json:"createdBy" dynamodbav:"createdBy"`
	CreatedAt     time.Time `json:"createdAt" dynamodbav:"createdAt"`
	IsStageChange bool      `json:"isStageChange" dynamodbav:"isStageChange"`
	IsAppointment bool      `json:"isAppointment" dynamodbav:"isAppointment"`
}

// IsActive reports whether the job belongs in the active pipeline view.
func (j Job) IsActive() bool {
	return !j.IsArchived && !j.IsDeadEstimate
}

// LastTouchedAt is the reference time for staleness checks.
func (j Job) LastTouchedAt() time.Time {
	if !j.UpdatedAt.IsZero() {
		return j.UpdatedAt
	}
	return j.CreatedAt
}

// Balance is what is still owed after the contract deposit.
func (j Job) Balance() float64 {
	paid := 0.0
	if j.Contract != nil {
		paid = j.Contract.DepositPaidAmount
	}
	if b := j.ValueContracted - paid; b > 0 {
		return b
	}
	return 0
}

// Clone returns a deep copy so callers can mutate without touching a shared snapshot.
func (j Job) Clone() Job {
	out := j
	out.ArchivedAt = cloneTime(j.ArchivedAt)
	out.MovedToDeadEstimateAt = cloneTime(j.MovedToDeadEstimateAt)
	if j.Appointment != nil {
		a := *j.Appointment
		a.Date = cloneTime(a.Date)
		out.Appointment = &a
	}
	if j.Estimate != nil {
		e := *j.Estimate
		e.SentAt = cloneTime(e.SentAt)
		if e.LineItems != nil {
			e.LineItems = append([]EstimateLineItem(nil), e.LineItems...)
		}
		out.Estimate = &e
	}
	if j.Contract != nil {
		c := *j.Contract
		c.SignedAt = cloneTime(c.SignedAt)
		c.DepositDate = cloneTime(c.DepositDate)
		out.Contract = &c
	}
	if j.Takeoff != nil {
		t := *j.Takeoff
		t.CompletedAt = cloneTime(t.CompletedAt)
		out.Takeoff = &t
	}
	if j.Schedule != nil {
		s := *j.Schedule
		s.StartDate = cloneTime(s.StartDate)
		s.EndDate = cloneTime(s.EndDate)
		out.Schedule = &s
	}
	if j.Calendar != nil {
		c := *j.Calendar
		c.LastSyncedAt = cloneTime(c.LastSyncedAt)
		out.Calendar = &c
	}
	if j.FinalPayment != nil {
		f := *j.FinalPayment
		f.PaidAt = cloneTime(f.PaidAt)
		out.FinalPayment = &f
	}
	if j.Notes != nil {
		out.Notes = append([]Note(nil), j.Notes...)
	}
	return out
}

// UTC returns a deep copy with every timestamp expressed in UTC, so equal
// instants always serialize identically.
func (j Job) UTC() Job {
	out := j.Clone()
	out.CreatedAt = out.CreatedAt.UTC()
	out.UpdatedAt = out.UpdatedAt.UTC()
	inUTC(out.ArchivedAt)
	inUTC(out.MovedToDeadEstimateAt)
	if out.Appointment != nil {
		inUTC(out.Appointment.Date)
	}
	if out.Estimate != nil {
		inUTC(out.Estimate.SentAt)
	}
	if out.Contract != nil {
		inUTC(out.Contract.SignedAt)
		inUTC(out.Contract.DepositDate)
	}
	if out.Takeoff != nil {
		inUTC(out.Takeoff.CompletedAt)
	}
	if out.Schedule != nil {
		inUTC(out.Schedule.StartDate)
		inUTC(out.Schedule.EndDate)
	}
	if out.Calendar != nil {
		inUTC(out.Calendar.LastSyncedAt)
	}
	if out.FinalPayment != nil {
		inUTC(out.FinalPayment.PaidAt)
	}
	for i := range out.Notes {
		out.Notes[i].CreatedAt = out.Notes[i].CreatedAt.UTC()
	}
	return out
}

func inUTC(t *time.Time) {
	if t != nil {
		*t = t.UTC()
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

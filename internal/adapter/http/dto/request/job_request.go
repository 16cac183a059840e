package request

import (
	"strings"

	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/usecase"
)

// CreateJobRequest is the payload of POST /v1/jobs.
type CreateJobRequest struct {
	CustomerID      string                `json:"customerId" binding:"required"`
	Stage           string                `json:"stage"`
	ValueEstimated  float64               `json:"valueEstimated"`
	ValueContracted float64               `json:"valueContracted"`
	Appointment     *entities.Appointment `json:"appointment"`
	Estimate        *entities.Estimate    `json:"estimate"`
	Contract        *entities.Contract    `json:"contract"`
	Takeoff         *entities.Takeoff     `json:"takeoff"`
	Schedule        *entities.Schedule    `json:"schedule"`
	Notes           []string              `json:"notes"`
}

func (r CreateJobRequest) ToInput() usecase.CreateJobInput {
	return usecase.CreateJobInput{
		CustomerID:      strings.TrimSpace(r.CustomerID),
		Stage:           entities.Stage(strings.TrimSpace(r.Stage)),
		ValueEstimated:  r.ValueEstimated,
		ValueContracted: r.ValueContracted,
		Appointment:     r.Appointment,
		Estimate:        r.Estimate,
		Contract:        r.Contract,
		Takeoff:         r.Takeoff,
		Schedule:        r.Schedule,
		Notes:           r.Notes,
	}
}

// NoteRequest is one element of the notes array sent back by clients.
// Author and timestamps are always assigned server side.
type NoteRequest struct {
	ID            string `json:"id"`
	Content       string `json:"content"`
	IsStageChange bool   `json:"isStageChange"`
	IsAppointment bool   `json:"isAppointment"`
}

// UpdateJobRequest is the payload of PATCH /v1/jobs/:id. Omitted fields are
// left untouched; a present sub-document replaces the stored one.
type UpdateJobRequest struct {
	CustomerID      *string                `json:"customerId"`
	Stage           *string                `json:"stage"`
	ValueEstimated  *float64               `json:"valueEstimated"`
	ValueContracted *float64               `json:"valueContracted"`
	Appointment     *entities.Appointment  `json:"appointment"`
	Estimate        *entities.Estimate     `json:"estimate"`
	Contract        *entities.Contract     `json:"contract"`
	Takeoff         *entities.Takeoff      `json:"takeoff"`
	Schedule        *entities.Schedule     `json:"schedule"`
	Calendar        *entities.Calendar     `json:"calendar"`
	FinalPayment    *entities.FinalPayment `json:"finalPayment"`
	Notes           []NoteRequest          `json:"notes"`
}

func (r UpdateJobRequest) ToPatch() usecase.JobPatch {
	p := usecase.JobPatch{
		CustomerID:      r.CustomerID,
		ValueEstimated:  r.ValueEstimated,
		ValueContracted: r.ValueContracted,
		Appointment:     r.Appointment,
		Estimate:        r.Estimate,
		Contract:        r.Contract,
		Takeoff:         r.Takeoff,
		Schedule:        r.Schedule,
		Calendar:        r.Calendar,
		FinalPayment:    r.FinalPayment,
	}
	if r.Stage != nil {
		s := entities.Stage(strings.TrimSpace(*r.Stage))
		p.Stage = &s
	}
	if len(r.Notes) > 0 {
		p.Notes = make([]entities.Note, 0, len(r.Notes))
		for _, n := range r.Notes {
			p.Notes = append(p.Notes, entities.Note{
				ID:            strings.TrimSpace(n.ID),
				Content:       n.Content,
				IsStageChange: n.IsStageChange,
				IsAppointment: n.IsAppointment,
			})
		}
	}
	return p
}

// MoveStageRequest is the payload of POST /v1/jobs/:id/stage.
type MoveStageRequest struct {
	Stage string `json:"stage" binding:"required"`
	Note  string `json:"note"`
}

func (r MoveStageRequest) ResolveStage() entities.Stage {
	return entities.Stage(strings.TrimSpace(r.Stage))
}

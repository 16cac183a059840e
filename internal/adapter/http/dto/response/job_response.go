package response

import (
	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/usecase"
)

// JobResponse is the stored job plus a few derived read-only fields.
type JobResponse struct {
	entities.Job
	StageLabel string  `json:"stageLabel"`
	IsActive   bool    `json:"isActive"`
	Balance    float64 `json:"balance"`
}

func FromJob(j entities.Job) JobResponse {
	if j.Notes == nil {
		j.Notes = []entities.Note{}
	}
	return JobResponse{
		Job:        j,
		StageLabel: j.Stage.Label(),
		IsActive:   j.IsActive(),
		Balance:    j.Balance(),
	}
}

func FromJobs(jobs []entities.Job) []JobResponse {
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, FromJob(j))
	}
	return out
}

type ActivityResponse struct {
	entities.Activity
	FromStageLabel string `json:"fromStageLabel,omitempty"`
	ToStageLabel   string `json:"toStageLabel,omitempty"`
}

func FromActivity(a entities.Activity) ActivityResponse {
	res := ActivityResponse{Activity: a}
	if a.FromStage != "" {
		res.FromStageLabel = a.FromStage.Label()
	}
	if a.ToStage != "" {
		res.ToStageLabel = a.ToStage.Label()
	}
	return res
}

func FromActivities(acts []entities.Activity) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(acts))
	for _, a := range acts {
		out = append(out, FromActivity(a))
	}
	return out
}

type CustomerResponse struct {
	entities.Customer
}

func FromCustomer(c entities.Customer) CustomerResponse {
	return CustomerResponse{Customer: c}
}

// SweepResponse always renders empty lists instead of null.
type SweepResponse struct {
	Advanced usecase.SweepPass      `json:"advanced"`
	Archived usecase.SweepPass      `json:"archived"`
	Failures []usecase.SweepFailure `json:"failures"`
}

func FromSweepResult(r usecase.SweepResult) SweepResponse {
	res := SweepResponse{Advanced: r.Advanced, Archived: r.Archived, Failures: r.Failures}
	if res.Advanced.JobIDs == nil {
		res.Advanced.JobIDs = []string{}
	}
	if res.Archived.JobIDs == nil {
		res.Archived.JobIDs = []string{}
	}
	if res.Failures == nil {
		res.Failures = []usecase.SweepFailure{}
	}
	return res
}

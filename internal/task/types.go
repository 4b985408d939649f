package task

import "time"

// CreateTaskRequest is the POST /tasks body.
type CreateTaskRequest struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Type           string    `json:"taskType"`
	Subtype        string    `json:"taskSubtype"`
	Priority       Priority  `json:"priority"`
	RequiredSkills []string  `json:"requiredSkills"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	AreaID         string    `json:"areaId"`
	AssetID        string    `json:"assetId"`
	CreatedBy      string    `json:"createdBy"`
}

// UpdateTaskRequest is the PATCH /tasks/{id} body. Nil fields are left
// untouched.
type UpdateTaskRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Priority    *Priority `json:"priority"`
	Status      *Status   `json:"status"`
	Progress    *int      `json:"progress"`
}

// ReassignRequest is the POST /tasks/{id}/reassign body.
type ReassignRequest struct {
	WorkerID string `json:"workerId"`
}

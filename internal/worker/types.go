package worker

// CreateWorkerRequest is the POST /workers body.
type CreateWorkerRequest struct {
	Name            string        `json:"name"`
	Expertise       []string      `json:"expertise"`
	Availability    *Availability `json:"availability"`
	ExperienceYears float64       `json:"experienceYears"`
}

// UpdateWorkerRequest is the PATCH /workers/{id} body. Nil fields are
// left untouched. The task list is never client-writable; it only moves
// through assignment and task completion.
type UpdateWorkerRequest struct {
	Name            *string       `json:"name"`
	Expertise       *[]string     `json:"expertise"`
	Availability    *Availability `json:"availability"`
	ExperienceYears *float64      `json:"experienceYears"`
}

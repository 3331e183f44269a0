package workflow

import "time"

type submitRequest struct {
	Type             string `json:"type" validate:"required"`
	TargetUserID     *int64 `json:"target_user_id"`
	RequesterName    string `json:"requester_name" validate:"omitempty,min=2,max=120"`
	Email            string `json:"email" validate:"omitempty,email"`
	RequestedRole    string `json:"requested_role" validate:"omitempty,max=60"`
	TargetDivisionID *int64 `json:"target_division_id"`
	Notes            string `json:"notes" validate:"max=2000"`
}

type decisionRequest struct {
	Comment string `json:"comment" validate:"max=2000"`
}

type stepResponse struct {
	ID          int64      `json:"id"`
	Level       int        `json:"level"`
	ApproverID  int64      `json:"approver_id"`
	Status      string     `json:"status"`
	Comments    string     `json:"comments,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

type requestResponse struct {
	ID               int64          `json:"id"`
	Type             string         `json:"type"`
	Status           string         `json:"status"`
	TargetUserID     *int64         `json:"target_user_id,omitempty"`
	RequesterName    string         `json:"requester_name"`
	Email            string         `json:"email"`
	RequestedRole    string         `json:"requested_role"`
	TargetDivisionID *int64         `json:"target_division_id,omitempty"`
	RequestedBy      int64          `json:"requested_by"`
	ApprovedBy       *int64         `json:"approved_by,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	SubmittedAt      time.Time      `json:"submitted_at"`
	ProcessedAt      *time.Time     `json:"processed_at,omitempty"`
	Steps            []stepResponse `json:"steps,omitempty"`
}

func toRequestResponse(req Request, steps []ApprovalStep) requestResponse {
	resp := requestResponse{
		ID:               req.ID,
		Type:             string(req.Type),
		Status:           string(req.Status),
		TargetUserID:     req.TargetUserID,
		RequesterName:    req.RequesterName,
		Email:            req.Email,
		RequestedRole:    req.RequestedRole,
		TargetDivisionID: req.TargetDivisionID,
		RequestedBy:      req.RequestedBy,
		ApprovedBy:       req.ApprovedBy,
		Notes:            req.Notes,
		SubmittedAt:      req.SubmittedAt,
		ProcessedAt:      req.ProcessedAt,
	}
	for _, step := range steps {
		resp.Steps = append(resp.Steps, stepResponse{
			ID:          step.ID,
			Level:       step.Level,
			ApproverID:  step.ApproverID,
			Status:      string(step.Status),
			Comments:    step.Comments,
			ProcessedAt: step.ProcessedAt,
		})
	}
	return resp
}

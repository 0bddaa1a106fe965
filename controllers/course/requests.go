package controllers

// Request bodies shared between the validator middlewares and the handlers

type CourseRequest struct {
	Title           string `json:"title" validate:"required,min=3,max=255"`
	Description     string `json:"description"`
	Author          string `json:"author"`
	DurationSeconds int64  `json:"duration_seconds" validate:"min=0"`
	IsIncentivized  bool   `json:"is_incentivized"`
}

type LessonRequest struct {
	Title      string `json:"title" validate:"required,min=1,max=255"`
	VideoURL   string `json:"video_url"`
	OrderIndex int    `json:"order_index" validate:"min=0"`
}

type WatchRequest struct {
	ProgressPercent int `json:"progress_percent" validate:"min=0,max=100"`
}

type CommitRequest struct {
	State map[string]interface{} `json:"state" validate:"required"`
}

type TerminateRequest struct {
	State map[string]interface{} `json:"state"`
}

type ProofRequest struct {
	Signature string `json:"signature" validate:"required"`
}

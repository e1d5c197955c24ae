package models

// Requests for cash-flow HTTP endpoints. user_id rules mirror ValidateUserID.

type HistoryRequest struct {
	UserID string `query:"user_id" json:"user_id" validate:"required,max=64,excludesall=*?[]\\:"`
	Months int    `query:"months" json:"months" validate:"gte=1,lte=60"`
}

type ProjectionsRequest struct {
	UserID  string `query:"user_id" json:"user_id" validate:"required,max=64,excludesall=*?[]\\:"`
	Periods int    `query:"periods" json:"periods" validate:"gte=1,lte=36"`
}

type InsightsRequest struct {
	UserID string `query:"user_id" json:"user_id" validate:"required,max=64,excludesall=*?[]\\:"`
}

type DashboardRequest struct {
	UserID  string `query:"user_id" json:"user_id" validate:"required,max=64,excludesall=*?[]\\:"`
	Months  int    `query:"months" json:"months" validate:"gte=1,lte=60"`
	Periods int    `query:"periods" json:"periods" validate:"gte=1,lte=36"`
}

type RefreshRequest struct {
	UserID string `json:"user_id" validate:"required,max=64,excludesall=*?[]\\:"`
}

type StreamRequest struct {
	UserID string `query:"user_id" validate:"required,max=64,excludesall=*?[]\\:"`
}

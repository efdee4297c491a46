package records

import (
	"database/sql"
	"time"
)

// Record is one row of the records table.
type Record struct {
	RecordID  string
	Name      string
	Position  string
	Level     string
	CreatedAt time.Time
	UpdatedAt sql.NullTime
}

type RecordRequest struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Level    string `json:"level"`
}

type RecordResponse struct {
	RecordID  string     `json:"recordId"`
	Name      string     `json:"name"`
	Position  string     `json:"position"`
	Level     string     `json:"level"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func toResponse(r *Record) RecordResponse {
	resp := RecordResponse{
		RecordID:  r.RecordID,
		Name:      r.Name,
		Position:  r.Position,
		Level:     r.Level,
		CreatedAt: r.CreatedAt,
	}
	if r.UpdatedAt.Valid {
		t := r.UpdatedAt.Time
		resp.UpdatedAt = &t
	}
	return resp
}

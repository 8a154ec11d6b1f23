package handler

import (
	"time"

	"vendorhub/internal/domain"
	"vendorhub/internal/trail"
)

type actorResponse struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func fromActor(a domain.Actor) actorResponse {
	resp := actorResponse{Type: string(a.Type), Name: a.Name}
	if a.ID != nil {
		resp.ID = a.ID.String()
	}
	return resp
}

type statusHistoryResponse struct {
	ID        string        `json:"id"`
	OldStatus *string       `json:"old_status"`
	NewStatus string        `json:"new_status"`
	Actor     actorResponse `json:"actor"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt string        `json:"created_at"`
}

func fromSupplierHistory(entries []trail.SupplierStatusHistory) []statusHistoryResponse {
	out := make([]statusHistoryResponse, 0, len(entries))
	for _, e := range entries {
		resp := statusHistoryResponse{
			ID:        e.ID.String(),
			NewStatus: string(e.NewStatus),
			Actor:     fromActor(e.Actor),
			Notes:     e.Notes,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
		if e.OldStatus != nil {
			v := string(*e.OldStatus)
			resp.OldStatus = &v
		}
		out = append(out, resp)
	}
	return out
}

func fromDocumentHistory(entries []trail.DocumentStatusHistory) []statusHistoryResponse {
	out := make([]statusHistoryResponse, 0, len(entries))
	for _, e := range entries {
		resp := statusHistoryResponse{
			ID:        e.ID.String(),
			NewStatus: string(e.NewStatus),
			Actor:     fromActor(e.Actor),
			Notes:     e.Notes,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
		if e.OldStatus != nil {
			v := string(*e.OldStatus)
			resp.OldStatus = &v
		}
		out = append(out, resp)
	}
	return out
}

type timelineEntryResponse struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Actor       actorResponse  `json:"actor"`
	Metadata    trail.Metadata `json:"metadata"`
	CreatedAt   string         `json:"created_at"`
}

func fromTimeline(entries []trail.ActivityLogEntry) []timelineEntryResponse {
	out := make([]timelineEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, timelineEntryResponse{
			ID:          e.ID.String(),
			Type:        string(e.Type),
			Title:       e.Title,
			Description: e.Description,
			Actor:       fromActor(e.Actor),
			Metadata:    e.Metadata,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

package server

import (
	"encoding/json"

	"inspectline/internal/domain"
	"inspectline/internal/inspection"
)

// Request payloads

type TaskPayload struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Completed bool   `json:"completed,omitempty"`
}

type SaveMissionRequest struct {
	ID            string        `json:"id,omitempty"`
	Kind          string        `json:"kind" enum:"exit,cleaning,monthly"`
	OrderID       string        `json:"orderId,omitempty"`
	UnitID        string        `json:"unitId,omitempty"`
	GuestName     string        `json:"guestName,omitempty"`
	ReferenceDate string        `json:"referenceDate,omitempty"`
	Status        string        `json:"status,omitempty" doc:"Ignored; status is always derived"`
	Tasks         []TaskPayload `json:"tasks"`
}

type OrderRequest struct {
	ID            string `json:"id,omitempty" doc:"Ignored; the path id wins"`
	UnitNumber    string `json:"unitNumber,omitempty"`
	GuestName     string `json:"guestName,omitempty"`
	DepartureDate string `json:"departureDate,omitempty" example:"2025-06-01"`
	Status        string `json:"status,omitempty" example:"חדש"`
}

// Responses

type MissionResponse struct {
	domain.Mission
	StatusLabel string `json:"statusLabel"`
	DateKnown   bool   `json:"dateKnown"`
}

type SaveMissionResponse struct {
	MissionResponse
	SavedTasksCount     int `json:"savedTasksCount"`
	TotalTasksCount     int `json:"totalTasksCount"`
	FailedTasksCount    int `json:"failedTasksCount"`
	CompletedTasksCount int `json:"completedTasksCount"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	Payload    map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Conversion helpers

func (r SaveMissionRequest) mission() domain.Mission {
	m := domain.Mission{
		ID:            r.ID,
		Kind:          domain.Kind(r.Kind),
		OrderID:       r.OrderID,
		UnitID:        r.UnitID,
		GuestName:     r.GuestName,
		ReferenceDate: r.ReferenceDate,
		Tasks:         make([]domain.Task, len(r.Tasks)),
	}
	for i, t := range r.Tasks {
		m.Tasks[i] = domain.Task(t)
	}
	return m
}

func (r OrderRequest) order(id string) domain.Order {
	return domain.Order{
		ID:            id,
		UnitNumber:    r.UnitNumber,
		GuestName:     r.GuestName,
		DepartureDate: r.DepartureDate,
		Status:        r.Status,
	}
}

func missionResponse(m domain.Mission, today inspection.Resolver) MissionResponse {
	res := today.Resolve(m.ReferenceDate, m.Tasks)
	m.Status = res.Status
	if m.Tasks == nil {
		m.Tasks = []domain.Task{}
	}
	return MissionResponse{Mission: m, StatusLabel: res.Status.Label(), DateKnown: res.DateKnown}
}

func mapMissions(items []domain.Mission, r inspection.Resolver) []MissionResponse {
	out := make([]MissionResponse, 0, len(items))
	for _, m := range items {
		out = append(out, missionResponse(m, r))
	}
	return out
}

func saveResponse(res domain.SaveResult, r inspection.Resolver) SaveMissionResponse {
	return SaveMissionResponse{
		MissionResponse:     missionResponse(res.Mission, r),
		SavedTasksCount:     res.SavedTasksCount,
		TotalTasksCount:     res.TotalTasksCount,
		FailedTasksCount:    res.FailedTasksCount,
		CompletedTasksCount: res.CompletedTasksCount,
	}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{"raw": raw}
	}
	return out
}

package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/rollcall/internal/ledger"
	"github.com/five82/rollcall/internal/period"
)

// envelope is the {success, message, data} wrapper every endpoint returns.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// PeriodDTO mirrors an entry of /api/attendance/periods.
type PeriodDTO struct {
	ID           int64  `json:"id"`
	PeriodNumber int    `json:"periodNumber"`
	Name         string `json:"name,omitempty"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	Break        bool   `json:"break,omitempty"`
}

// ToPeriod converts the wire form, parsing the "HH:MM" bounds.
func (d PeriodDTO) ToPeriod() (period.Period, error) {
	start, err := period.ParseTimeOfDay(d.StartTime)
	if err != nil {
		return period.Period{}, fmt.Errorf("period %d start: %w", d.ID, err)
	}
	end, err := period.ParseTimeOfDay(d.EndTime)
	if err != nil {
		return period.Period{}, fmt.Errorf("period %d end: %w", d.ID, err)
	}
	return period.Period{
		ID:     d.ID,
		Number: d.PeriodNumber,
		Name:   strings.TrimSpace(d.Name),
		Start:  start,
		End:    end,
		Break:  d.Break || strings.EqualFold(strings.TrimSpace(d.Name), "break"),
	}, nil
}

// FromPeriod renders a domain period for the wire.
func FromPeriod(p period.Period) PeriodDTO {
	return PeriodDTO{
		ID:           p.ID,
		PeriodNumber: p.Number,
		Name:         p.Name,
		StartTime:    p.Start.String(),
		EndTime:      p.End.String(),
		Break:        p.Break,
	}
}

// RecordDTO mirrors an entry of /api/attendance/today.
type RecordDTO struct {
	ID           string `json:"id,omitempty"`
	PeriodID     int64  `json:"periodId"`
	PeriodNumber int    `json:"periodNumber,omitempty"`
	Status       string `json:"status"`
	MarkedAt     string `json:"markedAt,omitempty"`
}

// ToRecord converts the wire form. Unparseable timestamps are dropped.
func (d RecordDTO) ToRecord() ledger.MarkRecord {
	return ledger.MarkRecord{
		PeriodID: d.PeriodID,
		Status:   ledger.ParseStatus(d.Status),
		MarkedAt: parseTime(d.MarkedAt),
	}
}

// MarkRequest is the POST /api/attendance/mark body. Image carries bare
// base64 without the data-URI prefix.
type MarkRequest struct {
	Image    string `json:"image" binding:"required"`
	PeriodID int64  `json:"periodId" binding:"required"`
}

// MarkData is the optional payload of a successful mark.
type MarkData struct {
	ID       string     `json:"id,omitempty"`
	PeriodID int64      `json:"periodId,omitempty"`
	Status   string     `json:"status,omitempty"`
	MarkedAt string     `json:"markedAt,omitempty"`
	Period   *PeriodDTO `json:"period,omitempty"`
}

// MarkResponse is the decoded mark reply. Success=false is a business
// answer, not a transport error.
type MarkResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Data    *MarkData `json:"data,omitempty"`
}

// StatsEntry is one row of the stats attendance list.
type StatsEntry struct {
	Date         string `json:"date,omitempty"`
	PeriodNumber int    `json:"periodNumber"`
	Status       string `json:"status"`
}

// Stats mirrors /api/attendance/stats.
type Stats struct {
	AttendanceList       []StatsEntry `json:"attendanceList"`
	TotalDays            int          `json:"totalDays,omitempty"`
	PresentDays          int          `json:"presentDays,omitempty"`
	AbsentDays           int          `json:"absentDays,omitempty"`
	AttendancePercentage float64      `json:"attendancePercentage,omitempty"`
}

// StatsQuery bounds the stats window; zero dates are omitted.
type StatsQuery struct {
	Start time.Time
	End   time.Time
}

// LoginRequest is the POST /api/auth/signin body.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// User is the signed-in account.
type User struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Username       string   `json:"username"`
	Email          string   `json:"email,omitempty"`
	StudentID      string   `json:"studentId,omitempty"`
	Roles          []string `json:"roles,omitempty"`
	FaceRegistered bool     `json:"faceRegistered"`
}

// LoginResult is the signin payload.
type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         User   `json:"user"`
}

// FaceHealth mirrors the face service /health reply.
type FaceHealth struct {
	Status     string `json:"status"`
	KnownFaces int    `json:"known_faces"`
}

// errorBody is the structured error payload some endpoints return.
type errorBody struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

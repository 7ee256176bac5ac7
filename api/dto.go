/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model from
  the external contract. Dates travel as "yyyy-mm-dd", times as 24-hour
  "HH:MM", weekdays as lowercase names, amounts as plain decimal strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"strings"
	"time"

	"github.com/dojokit/academy-engine/academy"
	"github.com/dojokit/academy-engine/ledger"
	"github.com/dojokit/academy-engine/schedule"
)

// =============================================================================
// CALENDAR
// =============================================================================

// InstanceDTO is one calendar occurrence.
type InstanceDTO struct {
	ClassID    string `json:"class_id,omitempty"`
	EventID    string `json:"event_id,omitempty"`
	Title      string `json:"title"`
	Date       string `json:"date"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Instructor string `json:"instructor,omitempty"`
	Status     string `json:"status"`
	Category   string `json:"category"`
}

func instanceDTO(inst schedule.CalendarInstance) InstanceDTO {
	return InstanceDTO{
		ClassID:    string(inst.ClassID),
		EventID:    string(inst.EventID),
		Title:      inst.Title,
		Date:       inst.Date.String(),
		Start:      inst.Start.Format("2006-01-02 15:04"),
		End:        inst.End.Format("2006-01-02 15:04"),
		Instructor: inst.Instructor,
		Status:     string(inst.Status),
		Category:   inst.Category,
	}
}

// =============================================================================
// CLASSES
// =============================================================================

type ExceptionRequest struct {
	Date       string  `json:"date"`
	Kind       string  `json:"kind"` // cancel, reschedule, move
	StartTime  *string `json:"start_time,omitempty"`
	EndTime    *string `json:"end_time,omitempty"`
	Instructor *string `json:"instructor,omitempty"`
	MovedTo    *string `json:"moved_to,omitempty"`
}

type CreateClassRequest struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name"`
	Weekdays   []string `json:"weekdays"` // "monday" ... "sunday"
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
	Instructor string   `json:"instructor"`
}

type ClassDTO struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Weekdays   []string `json:"weekdays"`
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
	Instructor string   `json:"instructor"`
	Exceptions int      `json:"exceptions"`
}

func classDTO(c schedule.ClassDefinition) ClassDTO {
	days := make([]string, len(c.Weekdays))
	for i, d := range c.Weekdays {
		days[i] = strings.ToLower(d.String())
	}
	return ClassDTO{
		ID:         string(c.ID),
		Name:       c.Name,
		Weekdays:   days,
		StartTime:  c.StartTime.String(),
		EndTime:    c.EndTime.String(),
		Instructor: c.Instructor,
		Exceptions: len(c.Exceptions),
	}
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, n := range names {
		d, ok := weekdayNames[strings.ToLower(n)]
		if !ok {
			return nil, academy.NewValidationError("weekdays", "unknown weekday "+n)
		}
		days = append(days, d)
	}
	return days, nil
}

// =============================================================================
// EVENTS
// =============================================================================

type CreateEventRequest struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   *string `json:"end_time,omitempty"` // default: one hour after start
	Category  string  `json:"category"`           // exam, tournament, generic
}

// =============================================================================
// STUDENTS / BALANCES
// =============================================================================

type CreateStudentRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type SetStatusRequest struct {
	Status string `json:"status"` // active, exam_ready, inactive
}

type EnrollRequest struct {
	StudentID string `json:"student_id"`
}

type StudentDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	Enrollments []string `json:"enrollments,omitempty"`
}

func studentDTO(s academy.Student) StudentDTO {
	dto := StudentDTO{ID: string(s.ID), Name: s.Name, Status: string(s.Status)}
	for _, c := range s.Enrollments {
		dto.Enrollments = append(dto.Enrollments, string(c))
	}
	return dto
}

type BalanceDTO struct {
	StudentID string `json:"student_id"`
	Balance   string `json:"balance"`
	Status    string `json:"status"`
}

func balanceDTO(b ledger.StudentBalance) BalanceDTO {
	return BalanceDTO{
		StudentID: string(b.StudentID),
		Balance:   b.Balance.String(),
		Status:    string(b.Status),
	}
}

// =============================================================================
// LEDGER
// =============================================================================

type ChargeRequest struct {
	StudentID string  `json:"student_id"`
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	Date      string  `json:"date,omitempty"` // default today
}

type PaymentRequest struct {
	StudentID string  `json:"student_id"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"` // cash, transfer, card
	Date      string  `json:"date,omitempty"`
}

type RecordDTO struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	Kind      string `json:"kind"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Category  string `json:"category,omitempty"`
	Method    string `json:"method,omitempty"`
	Status    string `json:"status"`
}

func recordDTO(r ledger.Record) RecordDTO {
	return RecordDTO{
		ID:        string(r.ID),
		StudentID: string(r.StudentID),
		Kind:      string(r.Kind),
		Amount:    r.Amount.String(),
		Date:      r.Date.String(),
		Category:  r.Category,
		Method:    r.Method,
		Status:    string(r.Status),
	}
}

// =============================================================================
// AUTOMATION / SETTINGS
// =============================================================================

type AutomationRunDTO struct {
	Created int `json:"created"`
}

type TriggerDaysRequest struct {
	BillingDay int `json:"billing_day"`
	LateFeeDay int `json:"late_fee_day"`
}

type AmountsRequest struct {
	MonthlyTuition float64 `json:"monthly_tuition"`
	LateFeeAmount  float64 `json:"late_fee_amount"`
}

type SettingsDTO struct {
	AcademyID      string `json:"academy_id"`
	Name           string `json:"name"`
	MonthlyTuition string `json:"monthly_tuition"`
	BillingDay     int    `json:"billing_day"`
	LateFeeDay     int    `json:"late_fee_day"`
	LateFeeAmount  string `json:"late_fee_amount"`
}

func settingsDTO(s academy.Settings) SettingsDTO {
	return SettingsDTO{
		AcademyID:      string(s.AcademyID),
		Name:           s.Name,
		MonthlyTuition: s.Payments.MonthlyTuition.String(),
		BillingDay:     s.Payments.BillingDay,
		LateFeeDay:     s.Payments.LateFeeDay,
		LateFeeAmount:  s.Payments.LateFeeAmount.String(),
	}
}

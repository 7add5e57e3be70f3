package domain

import (
	"strconv"
	"strings"
	"time"
)

// Student is the local projection of a registered student. The registration
// service owns the record; this service only reads it.
type Student struct {
	UserID         string    `json:"userId" db:"user_id"`
	Names          string    `json:"names" db:"names"`
	Age            *string   `json:"age,omitempty" db:"age"`
	Sex            *string   `json:"sex,omitempty" db:"sex"`
	Disability     string    `json:"disability" db:"disability"`
	DisabilityType string    `json:"disabilityType" db:"disability_type"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// Labels used by the distribution breakdowns
const (
	LabelUnknown      = "Unknown"
	LabelNoDisability = "No Disability"
)

// AgeGroup buckets a registered age into 10-13, 14-16, 17-19 and 20+.
// Missing, unparsable or out of range ages are Unknown.
func AgeGroup(age *string) string {
	if age == nil {
		return LabelUnknown
	}
	n, err := strconv.Atoi(strings.TrimSpace(*age))
	if err != nil {
		return LabelUnknown
	}
	switch {
	case n >= 10 && n < 14:
		return "10-13"
	case n >= 14 && n < 17:
		return "14-16"
	case n >= 17 && n < 20:
		return "17-19"
	case n >= 20 && n < 200:
		return "20+"
	default:
		return LabelUnknown
	}
}

// DisabilityLabel names the disability group of a student. Nil means the
// student is not in the projection.
func DisabilityLabel(s *Student) string {
	if s == nil {
		return LabelUnknown
	}
	if s.Disability == "no" || s.DisabilityType == "" {
		return LabelNoDisability
	}
	return s.DisabilityType
}

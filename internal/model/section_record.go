package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// SectionRecord sections 表的行结构，主键为 Section 自然键的各个分量
type SectionRecord struct {
	Department    string `gorm:"primaryKey;type:varchar(4)"`
	CourseNumber  int    `gorm:"primaryKey;autoIncrement:false"`
	Suffix        string `gorm:"primaryKey;type:varchar(2)"`
	Affiliation   string `gorm:"primaryKey;type:varchar(2)"`
	SectionNumber int    `gorm:"primaryKey;autoIncrement:false"`
	Term          string `gorm:"primaryKey;type:varchar(2)"`
	Year          int    `gorm:"primaryKey;autoIncrement:false"`
	Half          string `gorm:"primaryKey;type:varchar(2)"` // 无半学期时为空串

	TermKey  string `gorm:"type:varchar(6);not null;index"` // 例如 SP2023
	Position int    `gorm:"not null"`                       // 链接输出顺序

	Course         datatypes.JSONType[Course]      `gorm:"type:jsonb;not null"`
	CourseAreas    pq.StringArray                  `gorm:"type:text[];not null"`
	Credits        float64                         `gorm:"type:numeric(4,2);not null"`
	PermCount      int                             `gorm:"not null"`
	SeatsTotal     int                             `gorm:"not null"`
	SeatsFilled    int                             `gorm:"not null"`
	Status         string                          `gorm:"type:varchar(1);not null"`
	StartDate      time.Time                       `gorm:"type:date;not null"`
	EndDate        time.Time                       `gorm:"type:date;not null"`
	Instructors    datatypes.JSONSlice[Instructor] `gorm:"type:jsonb;not null"`
	Schedules      datatypes.JSONSlice[Schedule]   `gorm:"type:jsonb;not null"`
	PotentialError bool                            `gorm:"not null;default:false"`

	BaseModel
}

func (SectionRecord) TableName() string { return "sections" }

// NewSectionRecord Section → 行结构，position 为其在本次输出中的序号
func NewSectionRecord(s Section, position int) SectionRecord {
	id := s.Identifier
	half := ""
	if id.Half != nil {
		half = id.Half.String()
	}
	// nil 会写成 SQL NULL，违反非空约束
	areas := pq.StringArray(s.CourseAreas)
	if areas == nil {
		areas = pq.StringArray{}
	}
	return SectionRecord{
		Department:     id.Department,
		CourseNumber:   id.CourseNumber,
		Suffix:         id.Suffix,
		Affiliation:    id.Affiliation,
		SectionNumber:  id.SectionNumber,
		Term:           string(id.Term),
		Year:           id.Year,
		Half:           half,
		TermKey:        id.TermIdentifier().String(),
		Position:       position,
		Course:         datatypes.NewJSONType(s.Course),
		CourseAreas:    areas,
		Credits:        s.Credits,
		PermCount:      s.PermCount,
		SeatsTotal:     s.SeatsTotal,
		SeatsFilled:    s.SeatsFilled,
		Status:         string(s.Status),
		StartDate:      s.StartDate.Time(),
		EndDate:        s.EndDate.Time(),
		Instructors:    datatypes.JSONSlice[Instructor](s.Instructors),
		Schedules:      datatypes.JSONSlice[Schedule](s.Schedules),
		PotentialError: s.PotentialError,
	}
}

// ToSection 行结构 → Section
func (r SectionRecord) ToSection() (Section, error) {
	id := SectionIdentifier{
		CourseCode: CourseCode{
			Department:   r.Department,
			CourseNumber: r.CourseNumber,
			Suffix:       r.Suffix,
			Affiliation:  r.Affiliation,
		},
		SectionNumber: r.SectionNumber,
		Term:          Term(r.Term),
		Year:          r.Year,
	}
	if r.Half != "" {
		n, err := strconv.Atoi(r.Half[1:])
		if len(r.Half) != 2 || err != nil {
			return Section{}, fmt.Errorf("半学期标记格式错误: %q", r.Half)
		}
		id.Half = &Half{Prefix: r.Half[:1], Number: n}
	}
	return Section{
		Identifier:     id,
		Course:         r.Course.Data(),
		CourseAreas:    []string(r.CourseAreas),
		Credits:        r.Credits,
		PermCount:      r.PermCount,
		SeatsTotal:     r.SeatsTotal,
		SeatsFilled:    r.SeatsFilled,
		Status:         SectionStatus(r.Status),
		StartDate:      DateOf(r.StartDate),
		EndDate:        DateOf(r.EndDate),
		Instructors:    []Instructor(r.Instructors),
		Schedules:      []Schedule(r.Schedules),
		PotentialError: r.PotentialError,
	}, nil
}

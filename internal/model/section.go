package model

import (
	"strings"
	"time"
)

// School 课程主属学院代码
type School string

const (
	SchoolPOM School = "PO"
	SchoolHMC School = "HM"
	SchoolPTZ School = "PZ"
	SchoolCMC School = "CM"
	SchoolSCR School = "SC"
	SchoolCGU School = "CG"
)

// Valid 是否为已知学院
func (s School) Valid() bool {
	switch s {
	case SchoolPOM, SchoolHMC, SchoolPTZ, SchoolCMC, SchoolSCR, SchoolCGU:
		return true
	}
	return false
}

// SectionStatus 选课状态
type SectionStatus string

const (
	StatusOpen     SectionStatus = "O"
	StatusClosed   SectionStatus = "C"
	StatusReopened SectionStatus = "R"
	StatusUnknown  SectionStatus = "U"
)

// ParseSectionStatus 非 O/C/R 一律视为未知
func ParseSectionStatus(s string) SectionStatus {
	switch st := SectionStatus(s); st {
	case StatusOpen, StatusClosed, StatusReopened:
		return st
	}
	return StatusUnknown
}

// Weekday 星期字母，R 为周四，U 为周日
type Weekday string

const (
	Sunday    Weekday = "U"
	Monday    Weekday = "M"
	Tuesday   Weekday = "T"
	Wednesday Weekday = "W"
	Thursday  Weekday = "R"
	Friday    Weekday = "F"
	Saturday  Weekday = "S"
)

// WeekdaysInOrder 与上游 7 位星期掩码（如 -M-W-F-）逐位对应
var WeekdaysInOrder = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// CourseDate 上课起止日期
type CourseDate struct {
	Year  int `json:"year"  validate:"min=1900,max=2999"`
	Month int `json:"month" validate:"min=1,max=12"`
	Day   int `json:"day"   validate:"min=1,max=31"`
}

// Time 转为 UTC 零点的 time.Time，用于日期列
func (d CourseDate) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// DateOf time.Time → CourseDate
func DateOf(t time.Time) CourseDate {
	return CourseDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// Schedule 一个上课时间段
type Schedule struct {
	StartTime int       `json:"startTime" validate:"min=0,max=86400"` // 距午夜秒数
	EndTime   int       `json:"endTime"   validate:"min=0,max=86400"`
	Days      []Weekday `json:"days"      validate:"dive,oneof=U M T W R F S"`
	// 实验课等常有多个地点
	Locations []string `json:"locations" validate:"min=1"`
}

// DaysKey 星期集合的比较键
func (s Schedule) DaysKey() string {
	var b strings.Builder
	for _, d := range s.Days {
		b.WriteString(string(d))
	}
	return b.String()
}

// Course 课程元数据
type Course struct {
	Code               CourseCode `json:"code"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	PrimaryAssociation School     `json:"primaryAssociation" validate:"oneof=PO HM PZ CM SC CG"`
	PotentialError     bool       `json:"potentialError"`
}

// Instructor 授课教师
type Instructor struct {
	Name string `json:"name" validate:"required"`
}

// Section 规范化输出的课程 Section
type Section struct {
	Identifier  SectionIdentifier `json:"identifier"`
	Course      Course            `json:"course"`
	CourseAreas []string          `json:"courseAreas"`
	Credits     float64           `json:"credits"     validate:"min=0,max=10"`
	PermCount   int               `json:"permCount"   validate:"min=0"`
	SeatsTotal  int               `json:"seatsTotal"  validate:"min=0"`
	SeatsFilled int               `json:"seatsFilled" validate:"min=0"`
	Status      SectionStatus     `json:"status"      validate:"oneof=O C R U"`
	StartDate   CourseDate        `json:"startDate"`
	EndDate     CourseDate        `json:"endDate"`
	Instructors []Instructor      `json:"instructors" validate:"dive"`
	Schedules   []Schedule        `json:"schedules"   validate:"dive"`
	// 链接过程中出现数据冲突或推断时置位，宁可提示用户数据可能不可靠
	PotentialError bool `json:"potentialError"`
}

package linker

import (
	"errors"

	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
)

// sectionBuilder 跨多轮逐步填充的 Section，全部完成后才能 build
type sectionBuilder struct {
	identifier  model.SectionIdentifier
	course      model.Course
	courseAreas []string
	status      model.SectionStatus
	credits     float64
	seatsTotal  int
	seatsFilled int

	permCount *int
	startDate *model.CourseDate
	endDate   *model.CourseDate

	instructors []model.Instructor
	schedules   []model.Schedule

	potentialError bool
}

// flag 置位后本轮链接内不会被清除
func (b *sectionBuilder) flag() {
	b.potentialError = true
}

func (b *sectionBuilder) hasInstructor(name string) bool {
	for _, i := range b.instructors {
		if i.Name == name {
			return true
		}
	}
	return false
}

// addSlot 时间与星期完全相同的时间段合并地点，否则追加新时间段。
// 地点重复时不追加并返回 false
func (b *sectionBuilder) addSlot(start, end int, days []model.Weekday, location string) bool {
	for i := range b.schedules {
		s := &b.schedules[i]
		if s.StartTime != start || s.EndTime != end || !sameDays(s.Days, days) {
			continue
		}
		for _, l := range s.Locations {
			if l == location {
				return false
			}
		}
		s.Locations = append(s.Locations, location)
		return true
	}
	b.schedules = append(b.schedules, model.Schedule{
		StartTime: start,
		EndTime:   end,
		Days:      days,
		Locations: []string{location},
	})
	return true
}

func sameDays(a, b []model.Weekday) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var errMissingDates = errors.New("缺少起止日期")

// build 补齐默认值并生成 Section；起止日期缺失时返回错误
func (b *sectionBuilder) build() (model.Section, error) {
	if b.startDate == nil || b.endDate == nil {
		return model.Section{}, errMissingDates
	}
	perm := 0
	if b.permCount != nil {
		perm = *b.permCount
	}
	instructors := b.instructors
	if instructors == nil {
		instructors = []model.Instructor{}
	}
	schedules := b.schedules
	if schedules == nil {
		schedules = []model.Schedule{}
	}
	areas := b.courseAreas
	if areas == nil {
		areas = []string{}
	}
	return model.Section{
		Identifier:     b.identifier,
		Course:         b.course,
		CourseAreas:    areas,
		Credits:        b.credits,
		PermCount:      perm,
		SeatsTotal:     b.seatsTotal,
		SeatsFilled:    b.seatsFilled,
		Status:         b.status,
		StartDate:      *b.startDate,
		EndDate:        *b.endDate,
		Instructors:    instructors,
		Schedules:      schedules,
		PotentialError: b.potentialError,
	}, nil
}

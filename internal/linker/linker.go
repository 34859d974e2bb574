// Package linker 将各上游关系按自然键连接为规范化的 Section 列表。
//
// 每一轮都从最新的原始数据重新计算，中间状态只存在于本轮的键值表中。
// 数据冲突或推断不会导致记录被丢弃，只会置位 potentialError。
package linker

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperschedule/hyperschedule-sub000/internal/charset"
	"github.com/hyperschedule/hyperschedule-sub000/internal/location"
	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
	"github.com/hyperschedule/hyperschedule-sub000/internal/parser"
	apperrors "github.com/hyperschedule/hyperschedule-sub000/pkg/errors"
)

// Options 链接选项
type Options struct {
	// Strict 为 true 时（开发环境）遇到非法 Section 直接返回 ErrInvalidSection，
	// 否则记录告警并丢弃该 Section
	Strict bool
	// CourseFormat 课程数据格式，默认 dump
	CourseFormat CourseFormat
}

// Stats 一轮链接的统计
type Stats struct {
	Courses        int `json:"courses"`
	Staff          int `json:"staff"`
	Sections       int `json:"sections"`        // 链接到课程的 Section 数
	OrphanSections int `json:"orphan_sections"` // 找不到课程而跳过
	Output         int `json:"output"`
	Flagged        int `json:"flagged"`    // 输出中 potentialError 为 true 的数量
	Dropped        int `json:"dropped"`    // 未通过结构校验
	OtherTerm      int `json:"other_term"` // 不属于目标学期而过滤
}

// Linker 链接引擎，无状态，可并发调用
type Linker struct {
	resolver *location.Resolver
	opts     Options
	logger   *zap.Logger
}

// New 创建链接引擎
func New(resolver *location.Resolver, opts Options, logger *zap.Logger) *Linker {
	return &Linker{resolver: resolver, opts: opts, logger: logger}
}

// Link 解码全部原始数据并链接为目标学期的 Section 列表。
// 输出顺序为 course-section 记录的首次出现顺序，相同输入得到相同输出
func (l *Linker) Link(files Files, term model.TermIdentifier) ([]model.Section, Stats, error) {
	rel, err := LoadRelations(files, l.opts.CourseFormat, l.logger)
	if err != nil {
		return nil, Stats{}, err
	}
	return l.LinkRelations(rel, term)
}

// linkState 本轮链接的键值表
type linkState struct {
	courses     *keyedMap[model.Course]
	courseAreas *keyedMap[[]string]
	staff       map[string]model.Instructor
	sections    *keyedMap[*sectionBuilder]
	stats       Stats
}

// LinkRelations 对已解码的关系执行各轮连接
func (l *Linker) LinkRelations(rel *Relations, term model.TermIdentifier) ([]model.Section, Stats, error) {
	st := &linkState{
		courses:     newKeyedMap[model.Course](),
		courseAreas: newKeyedMap[[]string](),
		staff:       make(map[string]model.Instructor),
		sections:    newKeyedMap[*sectionBuilder](),
	}

	l.linkCourses(st, rel.Courses)
	l.linkCourseAreas(st, rel.CourseAreas)
	l.linkStaff(st, rel.Staff, rel.AltStaff)
	l.linkCourseSections(st, rel.CourseSections)
	l.linkInstructors(st, rel.SectionInstructors)
	l.linkPermCounts(st, rel.PermCounts)
	l.linkCalendar(st, rel.CalendarSessions, rel.CalendarSessionSections, term)
	l.linkSchedules(st, rel.Schedules)

	out, err := l.finalize(st, term)
	return out, st.stats, err
}

// ── 1. 课程 ──

func (l *Linker) linkCourses(st *linkState, rows []CourseRow) {
	for _, c := range rows {
		campus := model.School(c.Campus)
		if !campus.Valid() {
			l.logger.Debug("课程主属学院未知，已跳过", zap.String("code", c.Code), zap.String("campus", c.Campus))
			continue
		}
		code, err := model.ParseCXCourseCode(c.Code)
		if err != nil {
			l.logger.Debug("课程代码格式错误，已跳过", zap.String("code", c.Code))
			continue
		}

		course := model.Course{
			Code:               code,
			Title:              charset.FixEncoding(c.Title),
			Description:        charset.FixEncoding(c.Description),
			PrimaryAssociation: campus,
		}

		key := code.String()
		if prev, ok := st.courses.Get(key); ok {
			if prev.PotentialError ||
				prev.Title != course.Title ||
				prev.Description != course.Description ||
				prev.PrimaryAssociation != course.PrimaryAssociation {
				course.PotentialError = true
				l.logger.Warn("重复的课程记录内容不一致，以后者为准", zap.String("course", key))
			}
		}
		st.courses.Set(key, course)
	}
	st.stats.Courses = st.courses.Len()
}

// ── 2. 课程领域（同一课程多条记录取并集） ──

func (l *Linker) linkCourseAreas(st *linkState, rows []CourseAreaRow) {
	for _, a := range rows {
		key := a.CourseCode.String()
		existing, ok := st.courseAreas.Get(key)
		if !ok {
			st.courseAreas.Set(key, append([]string(nil), a.CourseAreas...))
			continue
		}
		l.logger.Debug("课程领域重复，合并", zap.String("course", key))
		for _, area := range a.CourseAreas {
			if !contains(existing, area) {
				existing = append(existing, area)
			}
		}
		st.courseAreas.Set(key, existing)
	}
}

// ── 3. 教职工（备用姓名覆盖） ──

func (l *Linker) linkStaff(st *linkState, staff []StaffRow, alt []AltStaffRow) {
	// 姓名为空的记录不入表，引用它的 Section 按未解析的教职工处理
	for _, s := range staff {
		name := staffName(s)
		if name == "" {
			l.logger.Debug("教职工姓名为空，已跳过", zap.String("cx_id", s.CxID))
			continue
		}
		st.staff[s.CxID] = model.Instructor{Name: name}
	}
	for _, s := range alt {
		name := strings.TrimSpace(s.AltName)
		if name == "" {
			l.logger.Debug("备用姓名为空，已跳过", zap.String("cx_id", s.CxID))
			continue
		}
		if _, ok := st.staff[s.CxID]; !ok {
			l.logger.Debug("备用姓名对应的教职工不存在", zap.String("cx_id", s.CxID))
		}
		st.staff[s.CxID] = model.Instructor{Name: name}
	}
	st.stats.Staff = len(st.staff)
}

// ── 4. Section ──

func (l *Linker) linkCourseSections(st *linkState, rows []CourseSectionRow) {
	for _, row := range rows {
		key := row.SectionID.String()
		courseKey := row.SectionID.CourseCode.String()

		course, ok := st.courses.Get(courseKey)
		if !ok {
			l.logger.Debug("Section 对应的课程不存在，已跳过", zap.String("section", key))
			st.stats.OrphanSections++
			continue
		}
		if row.SectionNumber != row.SectionID.SectionNumber {
			l.logger.Info("Section 序号与标识不一致",
				zap.String("section", key), zap.Int("section_number", row.SectionNumber))
		}

		b := &sectionBuilder{
			identifier:  row.SectionID,
			course:      course,
			status:      model.ParseSectionStatus(row.Status),
			credits:     row.Credits,
			seatsTotal:  row.SeatsTotal,
			seatsFilled: row.SeatsFilled,
		}
		if areas, ok := st.courseAreas.Get(courseKey); ok {
			b.courseAreas = append([]string(nil), areas...)
		}

		// 教务系统按时空唯一存储，多地点或多时段的课程会出现内容相同的重复记录
		if prev, ok := st.sections.Get(key); ok {
			if prev.potentialError ||
				prev.course != b.course ||
				prev.status != b.status ||
				prev.credits != b.credits ||
				prev.seatsTotal != b.seatsTotal ||
				prev.seatsFilled != b.seatsFilled {
				b.flag()
				l.logger.Debug("重复的 Section 记录内容不一致", zap.String("section", key))
			}
		}
		st.sections.Set(key, b)
	}

	if st.stats.OrphanSections > 0 {
		l.logger.Warn("部分 Section 缺少对应课程，已跳过", zap.Int("count", st.stats.OrphanSections))
	}
	st.stats.Sections = st.sections.Len()
}

// ── 5. 授课教师 ──

func (l *Linker) linkInstructors(st *linkState, rows []SectionInstructorRow) {
	for _, row := range rows {
		key := row.SectionID.String()
		b, ok := st.sections.Get(key)
		if !ok {
			l.logger.Debug("section-instructor 中的 Section 不存在", zap.String("section", key))
			continue
		}
		for _, id := range row.Staff {
			staff, ok := st.staff[id]
			if !ok {
				l.logger.Debug("授课教师不存在", zap.String("section", key), zap.String("cx_id", id))
				b.flag()
				continue
			}
			if b.hasInstructor(staff.Name) {
				l.logger.Warn("重复的授课教师", zap.String("section", key), zap.String("name", staff.Name))
				continue
			}
			b.instructors = append(b.instructors, staff)
		}
	}
}

// ── 6. 特批人数 ──

func (l *Linker) linkPermCounts(st *linkState, rows []PermCountRow) {
	for _, row := range rows {
		key := row.SectionID.String()
		b, ok := st.sections.Get(key)
		if !ok {
			l.logger.Debug("perm-count 中的 Section 不存在", zap.String("section", key))
			continue
		}
		n := row.PermCount
		b.permCount = &n
	}
}

// ── 7. 起止日期 ──

type calendarRange struct {
	start model.CourseDate
	end   model.CourseDate
}

func (l *Linker) linkCalendar(st *linkState, sessions []CalendarSessionRow, links []CalendarSessionSectionRow, term model.TermIdentifier) {
	calendar := make(map[string]calendarRange, len(sessions))
	for _, s := range sessions {
		start, err1 := parseCalendarDate(s.StartDate)
		end, err2 := parseCalendarDate(s.EndDate)
		if err1 != nil || err2 != nil {
			l.logger.Warn("学期日历日期格式错误，已跳过", zap.String("session", s.Session),
				zap.String("start", s.StartDate), zap.String("end", s.EndDate))
			continue
		}
		calendar[s.Session] = calendarRange{start: start, end: end}
	}

	for _, link := range links {
		key := link.SectionID.String()
		b, ok := st.sections.Get(key)
		if !ok {
			l.logger.Debug("calendar-session-section 中的 Section 不存在", zap.String("section", key))
			continue
		}
		r, ok := calendar[link.Session]
		if !ok {
			// 日期留空，由下方学期默认日历兜底
			l.logger.Debug("学期日历不存在", zap.String("section", key), zap.String("session", link.Session))
			b.flag()
			continue
		}
		start, end := r.start, r.end
		b.startDate, b.endDate = &start, &end
	}

	termKey := term.String()
	def, ok := calendar[termKey]
	if !ok {
		l.logger.Warn("缺少学期默认日历", zap.String("term", termKey))
		return
	}
	st.sections.Each(func(key string, b *sectionBuilder) {
		if b.startDate == nil {
			start := def.start
			b.startDate = &start
			b.flag()
		}
		if b.endDate == nil {
			end := def.end
			b.endDate = &end
			b.flag()
		}
	})
}

// ── 8. 上课时间段 ──

func (l *Linker) linkSchedules(st *linkState, rows []ScheduleRow) {
	for _, row := range rows {
		key := row.SectionID.String()
		b, ok := st.sections.Get(key)
		if !ok {
			l.logger.Debug("course-section-schedule 中的 Section 不存在", zap.String("section", key))
			continue
		}

		start, end, days, err := parseSlot(row)
		if err != nil {
			l.logger.Warn("上课时间段格式错误，已跳过", zap.String("section", key), zap.Error(err))
			b.flag()
			continue
		}
		loc := l.resolver.Resolve(row.Location)
		if !b.addSlot(start, end, days, loc) {
			l.logger.Debug("上课地点重复", zap.String("section", key), zap.String("location", loc))
			b.flag()
		}
	}
}

func parseSlot(row ScheduleRow) (start, end int, days []model.Weekday, err error) {
	if start, err = parseTime(row.BeginTime); err != nil {
		return
	}
	if end, err = parseTime(row.EndTime); err != nil {
		return
	}
	days, err = parseWeekdays(row.MeetingDays)
	return
}

// ── 汇总 ──

func (l *Linker) finalize(st *linkState, term model.TermIdentifier) ([]model.Section, error) {
	out := make([]model.Section, 0, st.sections.Len())
	var fatal error

	st.sections.Each(func(key string, b *sectionBuilder) {
		if fatal != nil {
			return
		}
		s, err := b.build()
		if err == nil {
			err = parser.Validator().Struct(s)
		}
		if err != nil {
			if l.opts.Strict {
				l.logger.Error("非法 Section", zap.String("section", key), zap.Error(err))
				fatal = fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidSection, key, err)
				return
			}
			l.logger.Warn("非法 Section，已丢弃", zap.String("section", key), zap.Error(err))
			st.stats.Dropped++
			return
		}

		if s.Identifier.Term != term.Term || s.Identifier.Year != term.Year {
			st.stats.OtherTerm++
			return
		}
		if s.PotentialError {
			st.stats.Flagged++
		}
		out = append(out, s)
	})
	if fatal != nil {
		return nil, fatal
	}

	st.stats.Output = len(out)
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

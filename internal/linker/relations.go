package linker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
	"github.com/hyperschedule/hyperschedule-sub000/internal/parser"
)

// 上游关系名，同时作为数据源名称与缓存键
const (
	RelationCourse                 = "course"
	RelationCourseSection          = "course-section"
	RelationCourseSectionSchedule  = "course-section-schedule"
	RelationSectionInstructor      = "section-instructor"
	RelationStaff                  = "staff"
	RelationAltStaff               = "alt-staff"
	RelationPermCount              = "perm-count"
	RelationCalendarSession        = "calendar-session"
	RelationCalendarSessionSection = "calendar-session-section"
	RelationCourseArea             = "course-area"
)

// AllRelations 链接所需的全部关系
var AllRelations = []string{
	RelationPermCount,
	RelationCourseSection,
	RelationStaff,
	RelationAltStaff,
	RelationCourse,
	RelationCourseSectionSchedule,
	RelationCalendarSession,
	RelationCalendarSessionSection,
	RelationSectionInstructor,
	RelationCourseArea,
}

// Files 关系名 → 最新原始数据
type Files map[string]string

// CourseFormat 课程数据的导出格式
type CourseFormat string

const (
	CourseFormatDump      CourseFormat = "dump"
	CourseFormatDelimited CourseFormat = "delimited"
)

// ── 解码后的关系记录 ──

// CourseRow 课程，code 为 CX 11 位课程代码
type CourseRow struct {
	Code        string
	Title       string
	Campus      string
	Description string
}

type CourseSectionRow struct {
	SectionID     model.SectionIdentifier `json:"sectionId"`
	SectionNumber int                     `json:"sectionNumber" validate:"min=0"`
	SeatsTotal    int                     `json:"seatsTotal"    validate:"min=0"`
	SeatsFilled   int                     `json:"seatsFilled"   validate:"min=0"`
	Status        string                  `json:"status"        validate:"required"`
	Credits       float64                 `json:"credits"       validate:"min=0,max=10"`
}

type ScheduleRow struct {
	SectionID   model.SectionIdentifier `json:"sectionId"`
	BeginTime   string                  `json:"beginTime"   validate:"numeric"`
	EndTime     string                  `json:"endTime"     validate:"numeric"`
	MeetingDays string                  `json:"meetingDays" validate:"required"`
	Location    string                  `json:"location"    validate:"required"`
}

type SectionInstructorRow struct {
	SectionID model.SectionIdentifier `json:"sectionId"`
	Staff     []string                `json:"staff" validate:"dive,numeric"`
}

type StaffRow struct {
	CxID      string `json:"cxId" validate:"numeric"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	// 部分教职工只有全名，形如 "last, first middle,,suffix"
	FullName string `json:"fullName"`
}

type AltStaffRow struct {
	CxID    string `json:"cxId"    validate:"numeric"`
	AltName string `json:"altName" validate:"required"`
}

type PermCountRow struct {
	SectionID model.SectionIdentifier `json:"sectionId"`
	PermCount int                     `json:"permCount" validate:"min=0"`
}

type CalendarSessionRow struct {
	Session   string `json:"session"   validate:"required"`
	StartDate string `json:"startDate" validate:"len=8,numeric"` // yyyymmdd
	EndDate   string `json:"endDate"   validate:"len=8,numeric"`
}

type CalendarSessionSectionRow struct {
	Session   string                  `json:"session" validate:"required"`
	SectionID model.SectionIdentifier `json:"sectionId"`
}

type CourseAreaRow struct {
	CourseCode  model.CourseCode `json:"courseCode"`
	Catalog     string           `json:"catalog"     validate:"len=4,startswith=UG"`
	CourseAreas []string         `json:"courseAreas" validate:"dive,required"`
}

// Relations 一轮链接的全部输入
type Relations struct {
	Courses                 []CourseRow
	CourseSections          []CourseSectionRow
	Schedules               []ScheduleRow
	SectionInstructors      []SectionInstructorRow
	Staff                   []StaffRow
	AltStaff                []AltStaffRow
	PermCounts              []PermCountRow
	CalendarSessions        []CalendarSessionRow
	CalendarSessionSections []CalendarSessionSectionRow
	CourseAreas             []CourseAreaRow
}

// ── 字段转换 ──

var digitsRegex = regexp.MustCompile(`^\d+$`)

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("期望字符串, 实际 %T", v)
	}
	return s, nil
}

func cxSectionTo(name string) parser.FieldTransform {
	return parser.Convert(func(v any) (string, any, error) {
		s, err := asString(v)
		if err != nil {
			return "", nil, err
		}
		id, err := model.ParseCXSectionIdentifier(s)
		return name, id, err
	})
}

func cxCourseTo(name string) parser.FieldTransform {
	return parser.Convert(func(v any) (string, any, error) {
		s, err := asString(v)
		if err != nil {
			return "", nil, err
		}
		code, err := model.ParseCXCourseCode(s)
		return name, code, err
	})
}

func intStringTo(name string) parser.FieldTransform {
	return parser.Convert(func(v any) (string, any, error) {
		s, err := asString(v)
		if err != nil {
			return "", nil, err
		}
		if !digitsRegex.MatchString(s) {
			return "", nil, fmt.Errorf("不是非负整数: %q", s)
		}
		n, err := strconv.Atoi(s)
		return name, n, err
	})
}

func decimalStringTo(name string) parser.FieldTransform {
	return parser.Convert(func(v any) (string, any, error) {
		s, err := asString(v)
		if err != nil {
			return "", nil, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return name, f, err
	})
}

// optionalString 缺失时输出空串
func optionalString(name string) parser.FieldTransform {
	return parser.Convert(func(v any) (string, any, error) {
		if v == nil {
			return name, "", nil
		}
		s, err := asString(v)
		return name, s, err
	})
}

// flipName "Last, First" → "First Last"
func flipName(name string) parser.FieldTransform {
	return parser.Convert(func(v any) (string, any, error) {
		s, err := asString(v)
		if err != nil {
			return "", nil, err
		}
		parts := strings.Split(s, ",")
		if len(parts) != 2 {
			return "", nil, fmt.Errorf("备用姓名格式错误: %q", s)
		}
		return name, strings.TrimSpace(parts[1]) + " " + strings.TrimSpace(parts[0]), nil
	})
}

// ── 各关系的转换表 ──

var (
	courseSectionTransforms = parser.Transforms{
		"courseSectionId":     cxSectionTo("sectionId"),
		"courseSectionNumber": intStringTo("sectionNumber"),
		"capacity":            intStringTo("seatsTotal"),
		"currentEnrollment":   intStringTo("seatsFilled"),
		"status":              parser.Keep(),
		"creditHours":         decimalStringTo("credits"),
	}
	scheduleTransforms = parser.Transforms{
		"courseSectionId":     cxSectionTo("sectionId"),
		"classBeginningTime":  parser.Rename("beginTime"),
		"classEndingTime":     parser.Rename("endTime"),
		"classMeetingDays":    parser.Rename("meetingDays"),
		"instructionSiteName": parser.Rename("location"),
	}
	sectionInstructorTransforms = parser.Transforms{
		"courseSectionId":  cxSectionTo("sectionId"),
		"staffExternalIds": parser.Rename("staff"),
	}
	staffTransforms = parser.Transforms{
		"cxId":      parser.Keep(),
		"firstName": optionalString("firstName"),
		"lastName":  optionalString("lastName"),
		"fullName":  optionalString("fullName"),
	}
	altStaffTransforms = parser.Transforms{
		"cxId":      parser.Keep(),
		"firstName": parser.Drop(),
		"lastName":  parser.Drop(),
		"altName":   flipName("altName"),
	}
	permCountTransforms = parser.Transforms{
		"courseSectionId": cxSectionTo("sectionId"),
		"permCount":       intStringTo("permCount"),
	}
	calendarSessionTransforms = parser.Transforms{
		"externalId": parser.Rename("session"),
		"beginDate":  parser.Rename("startDate"),
		"endDate":    parser.Keep(),
	}
	calendarSessionSectionTransforms = parser.Transforms{
		"calendarSessionExternalId": parser.Rename("session"),
		"courseSectionId":           cxSectionTo("sectionId"),
	}
	courseAreaTransforms = parser.Transforms{
		"course_code":  cxCourseTo("courseCode"),
		"catalog":      parser.Keep(),
		"course_areas": parser.Rename("courseAreas"),
	}
)

// 课程旧式导出的列：代码、标题、两列未用、校区、描述
var courseDumpFields = []string{"code", "title", "", "", "campus", "description"}

// 课程分隔文本导出：||`|| 分隔，单元格内换行写作 ||``||
var courseDelimitedSpec = parser.DelimitedSpec{
	Separator: "||`||",
	HasHeader: true,
	Fields: map[string]string{
		"code":        "externalId",
		"title":       "courseTitle",
		"campus":      "institutionExternalId",
		"description": "description",
	},
	NewlineEscape: "||``||",
}

// ── 加载 ──

// LoadRelations 解码全部关系。任一关系出现致命解析错误即返回错误，本轮链接放弃
func LoadRelations(files Files, format CourseFormat, logger *zap.Logger) (*Relations, error) {
	for _, name := range AllRelations {
		if _, ok := files[name]; !ok {
			return nil, fmt.Errorf("缺少关系数据: %s", name)
		}
	}

	var (
		rel Relations
		err error
	)
	if rel.Courses, err = loadCourses(files[RelationCourse], format, logger); err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", RelationCourse, err)
	}
	if rel.CourseSections, err = decodeRelation[CourseSectionRow](files, RelationCourseSection, courseSectionTransforms, logger); err != nil {
		return nil, err
	}
	if rel.Schedules, err = decodeRelation[ScheduleRow](files, RelationCourseSectionSchedule, scheduleTransforms, logger); err != nil {
		return nil, err
	}
	if rel.SectionInstructors, err = decodeRelation[SectionInstructorRow](files, RelationSectionInstructor, sectionInstructorTransforms, logger); err != nil {
		return nil, err
	}
	if rel.Staff, err = decodeRelation[StaffRow](files, RelationStaff, staffTransforms, logger); err != nil {
		return nil, err
	}
	if rel.AltStaff, err = decodeRelation[AltStaffRow](files, RelationAltStaff, altStaffTransforms, logger); err != nil {
		return nil, err
	}
	if rel.PermCounts, err = decodeRelation[PermCountRow](files, RelationPermCount, permCountTransforms, logger); err != nil {
		return nil, err
	}
	if rel.CalendarSessions, err = decodeRelation[CalendarSessionRow](files, RelationCalendarSession, calendarSessionTransforms, logger); err != nil {
		return nil, err
	}
	if rel.CalendarSessionSections, err = decodeRelation[CalendarSessionSectionRow](files, RelationCalendarSessionSection, calendarSessionSectionTransforms, logger); err != nil {
		return nil, err
	}
	if rel.CourseAreas, err = decodeRelation[CourseAreaRow](files, RelationCourseArea, courseAreaTransforms, logger); err != nil {
		return nil, err
	}
	return &rel, nil
}

func decodeRelation[T any](files Files, name string, transforms parser.Transforms, logger *zap.Logger) ([]T, error) {
	rows, warnings, err := parser.DecodeArray[T]([]byte(files[name]), transforms)
	if err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", name, err)
	}
	for _, w := range warnings {
		logger.Debug("数据条目无法解析，已丢弃",
			zap.String("relation", name), zap.Int("index", w.Index), zap.Error(w.Err))
	}
	if len(warnings) > 0 {
		logger.Warn("部分数据条目解析失败",
			zap.String("relation", name), zap.Int("dropped", len(warnings)), zap.Int("kept", len(rows)))
	}
	return rows, nil
}

func loadCourses(data string, format CourseFormat, logger *zap.Logger) ([]CourseRow, error) {
	var records []map[string]string

	switch format {
	case CourseFormatDelimited:
		res, err := parser.ParseDelimited(courseDelimitedSpec, data)
		if err != nil {
			return nil, err
		}
		for _, w := range res.Warnings {
			logger.Warn("课程分隔文本解析告警", zap.Stringer("warning", w))
		}
		records = res.Records
	case CourseFormatDump, "":
		res, err := parser.ParseDump(courseDumpFields, data)
		if err != nil {
			return nil, err
		}
		for _, w := range res.Warnings {
			logger.Warn("课程导出文件解析告警", zap.Stringer("warning", w))
		}
		records = res.Records
	default:
		return nil, fmt.Errorf("未知课程数据格式: %q", format)
	}

	rows := make([]CourseRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, CourseRow{
			Code:        r["code"],
			Title:       r["title"],
			Campus:      r["campus"],
			Description: r["description"],
		})
	}
	return rows, nil
}

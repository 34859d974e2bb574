package linker

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/hyperschedule/hyperschedule-sub000/internal/location"
	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
	apperrors "github.com/hyperschedule/hyperschedule-sub000/pkg/errors"
)

// ── 测试辅助 ──

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}
	return string(b)
}

type obj = map[string]any

func testFiles(t *testing.T) Files {
	return Files{
		RelationAltStaff: "[]",
		RelationCalendarSession: mustJSON(t, []obj{
			{"externalId": "SP2023", "beginDate": "20230117", "endDate": "20230512"},
			{"externalId": "SP2023P1", "beginDate": "20230117", "endDate": "20230303"},
		}),
		RelationCalendarSessionSection: mustJSON(t, []obj{
			{"calendarSessionExternalId": "SP2023", "courseSectionId": "CSCI105  HM-01 SP2023"},
			{"calendarSessionExternalId": "SP2023P1", "courseSectionId": "ENGR085A HM-01 SP2023P1"},
		}),
		RelationCourse: "DBSTART|85ba3f56-d039-43dd-ad22-913c0e2b42b8|2|@|BEGIN|2|@|OUT_START|3|@|" +
			"CSCI105  HM|^|Computer Systems|^|HCSI|^||^|HM|^|Description for CS105\n" +
			"|#|ENGR085A HM|^|Digital Electronics|^|HEGR|^||^|HM|^|Description for E85A|#||#|OUT_END|3|@|END|2|@|",
		RelationCourseSection: mustJSON(t, []obj{
			{"courseSectionId": "CSCI105  HM-01 SP2023", "courseSectionNumber": "01",
				"capacity": "30", "currentEnrollment": "26", "status": "R", "creditHours": "3.0"},
			{"courseSectionId": "ENGR085A HM-01 SP2023P1", "courseSectionNumber": "01",
				"capacity": "11", "currentEnrollment": "8", "status": "R", "creditHours": "1.5"},
		}),
		RelationCourseSectionSchedule: mustJSON(t, []obj{
			{"courseSectionId": "CSCI105  HM-01 SP2023", "classBeginningTime": "1315",
				"classEndingTime": "1430", "classMeetingDays": "--T-R--", "instructionSiteName": "HM BK B126"},
			{"courseSectionId": "ENGR085A HM-01 SP2023P1", "classBeginningTime": "810",
				"classEndingTime": "935", "classMeetingDays": "-M-W---", "instructionSiteName": "HM SHAN B460"},
		}),
		RelationPermCount: mustJSON(t, []obj{
			{"courseSectionId": "ENGR085A HM-01 SP2023P1", "permCount": "2"},
		}),
		RelationSectionInstructor: mustJSON(t, []obj{
			{"courseSectionId": "CSCI105  HM-01 SP2023", "staffExternalIds": []string{"40000000"}},
			{"courseSectionId": "ENGR085A HM-01 SP2023P1", "staffExternalIds": []string{"40000001"}},
		}),
		RelationStaff: mustJSON(t, []obj{
			{"cxId": "40000000", "firstName": "First", "lastName": "Test"},
			{"cxId": "40000001", "firstName": "Test", "lastName": "Second"},
		}),
		RelationCourseArea: mustJSON(t, []obj{
			{"course_code": "CSCI105  HM", "catalog": "UG22", "course_areas": []string{"1A5", "CSCI"}},
			{"course_code": "ENGR085A HM", "catalog": "UG22", "course_areas": []string{"ENGR"}},
		}),
	}
}

func newTestLinker(t *testing.T, strict bool) *Linker {
	t.Helper()
	resolver, err := location.NewDefaultResolver(zap.NewNop())
	if err != nil {
		t.Fatalf("加载楼宇表失败: %v", err)
	}
	return New(resolver, Options{Strict: strict}, zap.NewNop())
}

var spring2023 = model.TermIdentifier{Term: model.TermSpring, Year: 2023}

func expectedSections() []model.Section {
	csci := model.CourseCode{Department: "CSCI", CourseNumber: 105, Affiliation: "HM"}
	engr := model.CourseCode{Department: "ENGR", CourseNumber: 85, Suffix: "A", Affiliation: "HM"}
	return []model.Section{
		{
			Identifier: model.SectionIdentifier{CourseCode: csci, SectionNumber: 1, Term: model.TermSpring, Year: 2023},
			Course: model.Course{
				Code: csci, Title: "Computer Systems", Description: "Description for CS105\n",
				PrimaryAssociation: model.SchoolHMC,
			},
			CourseAreas: []string{"1A5", "CSCI"},
			Credits:     3,
			PermCount:   0,
			SeatsTotal:  30,
			SeatsFilled: 26,
			Status:      model.StatusReopened,
			StartDate:   model.CourseDate{Year: 2023, Month: 1, Day: 17},
			EndDate:     model.CourseDate{Year: 2023, Month: 5, Day: 12},
			Instructors: []model.Instructor{{Name: "First Test"}},
			Schedules: []model.Schedule{{
				StartTime: 47700, EndTime: 52200,
				Days:      []model.Weekday{model.Tuesday, model.Thursday},
				Locations: []string{"Beckman Hall B126"},
			}},
		},
		{
			Identifier: model.SectionIdentifier{
				CourseCode: engr, SectionNumber: 1, Term: model.TermSpring, Year: 2023,
				Half: &model.Half{Prefix: "P", Number: 1},
			},
			Course: model.Course{
				Code: engr, Title: "Digital Electronics", Description: "Description for E85A",
				PrimaryAssociation: model.SchoolHMC,
			},
			CourseAreas: []string{"ENGR"},
			Credits:     1.5,
			PermCount:   2,
			SeatsTotal:  11,
			SeatsFilled: 8,
			Status:      model.StatusReopened,
			StartDate:   model.CourseDate{Year: 2023, Month: 1, Day: 17},
			EndDate:     model.CourseDate{Year: 2023, Month: 3, Day: 3},
			Instructors: []model.Instructor{{Name: "Test Second"}},
			Schedules: []model.Schedule{{
				StartTime: 29400, EndTime: 34500,
				Days:      []model.Weekday{model.Monday, model.Wednesday},
				Locations: []string{"Shanahan Center B460"},
			}},
		},
	}
}

// ── 测试 ──

func TestLink_DataIntegrity(t *testing.T) {
	l := newTestLinker(t, true)
	got, stats, err := l.Link(testFiles(t), spring2023)
	if err != nil {
		t.Fatalf("链接失败: %v", err)
	}
	if diff := cmp.Diff(expectedSections(), got); diff != "" {
		t.Errorf("链接结果不符 (-want +got):\n%s", diff)
	}
	if stats.Output != 2 || stats.Flagged != 0 || stats.Dropped != 0 {
		t.Errorf("统计不符: %+v", stats)
	}
}

func TestLink_TermFilter(t *testing.T) {
	l := newTestLinker(t, true)
	for _, term := range []model.TermIdentifier{
		{Term: model.TermFall, Year: 2023},
		{Term: model.TermFall, Year: 2022},
	} {
		got, stats, err := l.Link(testFiles(t), term)
		if err != nil {
			t.Fatalf("%s 链接失败: %v", term, err)
		}
		if len(got) != 0 {
			t.Errorf("%s 应无输出, 实际 %d", term, len(got))
		}
		if stats.OtherTerm != 2 {
			t.Errorf("%s 应过滤 2 个 Section, 实际 %d", term, stats.OtherTerm)
		}
	}
}

func TestLink_Idempotent(t *testing.T) {
	l := newTestLinker(t, true)
	files := testFiles(t)

	first, _, err := l.Link(files, spring2023)
	if err != nil {
		t.Fatalf("链接失败: %v", err)
	}
	second, _, err := l.Link(files, spring2023)
	if err != nil {
		t.Fatalf("链接失败: %v", err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Error("相同输入两次链接结果应逐字节一致")
	}
}

func TestLink_DuplicateSectionConflict(t *testing.T) {
	files := testFiles(t)
	files[RelationCourseSection] = mustJSON(t, []obj{
		{"courseSectionId": "CSCI105  HM-01 SP2023", "courseSectionNumber": "01",
			"capacity": "30", "currentEnrollment": "26", "status": "R", "creditHours": "3.0"},
		{"courseSectionId": "CSCI105  HM-01 SP2023", "courseSectionNumber": "01",
			"capacity": "30", "currentEnrollment": "26", "status": "R", "creditHours": "3.0"},
		{"courseSectionId": "ENGR085A HM-01 SP2023P1", "courseSectionNumber": "01",
			"capacity": "11", "currentEnrollment": "8", "status": "R", "creditHours": "1.5"},
		{"courseSectionId": "ENGR085A HM-01 SP2023P1", "courseSectionNumber": "01",
			"capacity": "11", "currentEnrollment": "8", "status": "C", "creditHours": "2.0"},
	})

	got, _, err := newTestLinker(t, true).Link(files, spring2023)
	if err != nil {
		t.Fatalf("链接失败: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("重复记录应合并为 2 个 Section, 实际 %d", len(got))
	}
	if got[0].PotentialError {
		t.Error("内容相同的重复记录不应置位 potentialError")
	}
	if !got[1].PotentialError {
		t.Error("状态与学分不一致的重复记录应置位 potentialError")
	}
	if got[1].Status != model.StatusClosed || got[1].Credits != 2 {
		t.Errorf("应以后出现的记录为准, 实际 %s %v", got[1].Status, got[1].Credits)
	}
}

func TestLink_DefaultCalendar(t *testing.T) {
	files := testFiles(t)
	files[RelationCalendarSessionSection] = mustJSON(t, []obj{
		{"calendarSessionExternalId": "SP2023P1", "courseSectionId": "ENGR085A HM-01 SP2023P1"},
	})

	got, _, err := newTestLinker(t, true).Link(files, spring2023)
	if err != nil {
		t.Fatalf("链接失败: %v", err)
	}
	cs := got[0]
	if cs.StartDate != (model.CourseDate{Year: 2023, Month: 1, Day: 17}) ||
		cs.EndDate != (model.CourseDate{Year: 2023, Month: 5, Day: 12}) {
		t.Errorf("应使用学期默认日历, 实际 %+v - %+v", cs.StartDate, cs.EndDate)
	}
	if !cs.PotentialError {
		t.Error("使用默认日历时应置位 potentialError")
	}
	if got[1].PotentialError {
		t.Error("有明确日历的 Section 不应置位 potentialError")
	}
}

func TestLink_UnresolvedSessionFallsBack(t *testing.T) {
	files := testFiles(t)
	files[RelationCalendarSessionSection] = mustJSON(t, []obj{
		{"calendarSessionExternalId": "SP2023X9", "courseSectionId": "CSCI105  HM-01 SP2023"},
		{"calendarSessionExternalId": "SP2023P1", "courseSectionId": "ENGR085A HM-01 SP2023P1"},
	})

	got, _, err := newTestLinker(t, true).Link(files, spring2023)
	if err != nil {
		t.Fatalf("链接失败: %v", err)
	}
	if !got[0].PotentialError || got[0].EndDate.Month != 5 {
		t.Errorf("不存在的日历应置位并回退到默认日历, 实际 %+v", got[0])
	}
}

func TestLink_NoCalendar(t *testing.T) {
	files := testFiles(t)
	files[RelationCalendarSession] = mustJSON(t, []obj{
		{"externalId": "SP2023P1", "beginDate": "20230117", "endDate": "20230303"},
	})

	// 宽松模式：缺少日期的 Section 被丢弃
	got, stats, err := newTestLinker(t, false).Link(files, spring2023)
	if err != nil {
		t.Fatalf("链接失败: %v", err)
	}
	if len(got) != 1 || stats.Dropped != 1 {
		t.Errorf("应丢弃 1 个 Section, 实际输出 %d, 丢弃 %d", len(got), stats.Dropped)
	}

	// 严格模式：直接返回错误
	_, _, err = newTestLinker(t, true).Link(files, spring2023)
	if !errors.Is(err, apperrors.ErrInvalidSection) {
		t.Errorf("严格模式应返回 ErrInvalidSection, 实际 %v", err)
	}
}

func TestLink_SlotMerge(t *testing.T) {
	files := testFiles(t)
	files[RelationCourseSectionSchedule] = mustJSON(t, []obj{
		{"courseSectionId": "CSCI105  HM-01 SP2023", "classBeginningTime": "1315",
			"classEndingTime": "1430", "classMeetingDays": "--T-R--", "instructionSiteName": "HM BK B126"},
		{"courseSectionId": "CSCI105  HM-01 SP2023", "classBeginningTime": "1315",
			"classEndingTime": "1430", "classMeetingDays": "--T-R--", "instructionSiteName": "HM SHAN 2465"},
		{"courseSectionId": "CSCI105  HM-01 SP2023", "classBeginningTime": "1315",
			"classEndingTime": "1430", "classMeetingDays": "-M-----", "instructionSiteName": "HM SHAN 2465"},
		{"courseSectionId": "ENGR085A HM-01 SP2023P1", "classBeginningTime": "810",
			"classEndingTime": "935", "classMeetingDays": "-M-W---", "instructionSiteName": "HM SHAN B460"},
		{"courseSectionId": "ENGR085A HM-01 SP2023P1", "classBeginningTime": "810",
			"classEndingTime": "935", "classMeetingDays": "-M-W---", "instructionSiteName": "HM SHAN B460"},
	})

	got, _, err := newTestLinker(t, true).Link(files, spring2023)
	if err != nil {
		t.Fatalf("链接失败: %v", err)
	}

	wantCS := []model.Schedule{
		{StartTime: 47700, EndTime: 52200, Days: []model.Weekday{model.Tuesday, model.Thursday},
			Locations: []string{"Beckman Hall B126", "Shanahan Center 2465"}},
		{StartTime: 47700, EndTime: 52200, Days: []model.Weekday{model.Monday},
			Locations: []string{"Shanahan Center 2465"}},
	}
	if diff := cmp.Diff(wantCS, got[0].Schedules); diff != "" {
		t.Errorf("时间段合并结果不符 (-want +got):\n%s", diff)
	}
	if got[0].PotentialError {
		t.Error("不同地点合并不应置位 potentialError")
	}

	if len(got[1].Schedules) != 1 || len(got[1].Schedules[0].Locations) != 1 {
		t.Errorf("重复地点不应追加: %+v", got[1].Schedules)
	}
	if !got[1].PotentialError {
		t.Error("重复地点应置位 potentialError")
	}
}

func TestLink_MalformedScheduleFlagged(t *testing.T) {
	files := testFiles(t)
	files[RelationCourseSectionSchedule] = mustJSON(t, []obj{
		{"courseSectionId": "CSCI105  HM-01 SP2023", "classBeginningTime": "2575",
			"classEndingTime": "1430", "classMeetingDays": "--T-R--", "instructionSiteName": "HM BK B126"},
		{"courseSectionId": "ENGR085A HM-01 SP2023P1", "classBeginningTime": "810",
			"classEndingTime": "935", "classMeetingDays": "-W-M---", "instructionSiteName": "HM SHAN B460"},
	})

	got, _, err := newTestLinker(t, true).Link(files, spring2023)
	if err != nil {
		t.Fatalf("链接失败: %v", err)
	}
	for _, s := range got {
		if len(s.Schedules) != 0 || !s.PotentialError {
			t.Errorf("%s 格式错误的时间段应跳过并置位, 实际 %+v", s.Identifier, s.Schedules)
		}
	}
}

func TestLink_Instructors(t *testing.T) {
	files := testFiles(t)
	files[RelationStaff] = mustJSON(t, []obj{
		{"cxId": "40000000", "firstName": "First", "lastName": "Test"},
		{"cxId": "40000002", "firstName": "", "lastName": "", "fullName": "Doe, Jane Q,,Jr"},
	})
	files[RelationAltStaff] = mustJSON(t, []obj{
		{"cxId": "40000000", "firstName": "First", "lastName": "Test", "altName": "Tester, Preferred"},
	})
	files[RelationSectionInstructor] = mustJSON(t, []obj{
		{"courseSectionId": "CSCI105  HM-01 SP2023", "staffExternalIds": []string{"40000000", "40000002", "40000000"}},
		{"courseSectionId": "ENGR085A HM-01 SP2023P1", "staffExternalIds": []string{"49999999"}},
	})

	got, _, err := newTestLinker(t, true).Link(files, spring2023)
	if err != nil {
		t.Fatalf("链接失败: %v", err)
	}

	want := []model.Instructor{{Name: "Preferred Tester"}, {Name: "Jane Q Doe"}}
	if diff := cmp.Diff(want, got[0].Instructors); diff != "" {
		t.Errorf("授课教师不符 (-want +got):\n%s", diff)
	}
	if got[0].PotentialError {
		t.Error("重复教师不应置位 potentialError")
	}
	if len(got[1].Instructors) != 0 || !got[1].PotentialError {
		t.Error("不存在的教师应跳过并置位 potentialError")
	}
}

func TestLink_BlankStaffName(t *testing.T) {
	files := testFiles(t)
	files[RelationStaff] = mustJSON(t, []obj{
		{"cxId": "40000000", "firstName": "", "lastName": "", "fullName": ""},
		{"cxId": "40000001", "firstName": "", "lastName": "", "fullName": " , "},
	})
	files[RelationAltStaff] = mustJSON(t, []obj{
		{"cxId": "40000001", "firstName": "", "lastName": "", "altName": " , "},
	})

	want := expectedSections()
	for i := range want {
		want[i].Instructors = []model.Instructor{}
		want[i].PotentialError = true
	}

	for _, strict := range []bool{true, false} {
		got, stats, err := newTestLinker(t, strict).Link(files, spring2023)
		if err != nil {
			t.Fatalf("strict=%v: 姓名为空的教职工不应中断链接: %v", strict, err)
		}
		if stats.Dropped != 0 || stats.Output != 2 {
			t.Errorf("strict=%v: Section 不应被丢弃: %+v", strict, stats)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("strict=%v: 结果不符 (-want +got):\n%s", strict, diff)
		}
	}
}

func TestLink_DuplicateCourse(t *testing.T) {
	files := testFiles(t)
	files[RelationCourse] = "OUT_START|3|@|" +
		"CSCI105  HM|^|Computer Systems|^|HCSI|^||^|HM|^|Description for CS105\n" +
		"|#|CSCI105  HM|^|Computer Systems|^|HCSI|^||^|HM|^|Description for CS105\n" +
		"|#|ENGR085A HM|^|Digital Electronics|^|HEGR|^||^|HM|^|Description for E85A" +
		"|#|ENGR085A HM|^|Digital Electronics II|^|HEGR|^||^|HM|^|Description for E85A" +
		"|#|MATH030BXX|^|Calculus|^|HMTH|^||^|XX|^|Unknown campus|#||#|"

	got, stats, err := newTestLinker(t, true).Link(files, spring2023)
	if err != nil {
		t.Fatalf("链接失败: %v", err)
	}
	if stats.Courses != 2 {
		t.Errorf("未知学院的课程应跳过, 实际课程数 %d", stats.Courses)
	}
	if got[0].Course.PotentialError {
		t.Error("内容相同的重复课程不应置位")
	}
	if !got[1].Course.PotentialError || got[1].Course.Title != "Digital Electronics II" {
		t.Errorf("内容不一致的重复课程应置位并以后者为准, 实际 %+v", got[1].Course)
	}
}

func TestLink_OrphanSection(t *testing.T) {
	files := testFiles(t)
	files[RelationCourse] = "OUT_START|3|@|" +
		"CSCI105  HM|^|Computer Systems|^|HCSI|^||^|HM|^|Description for CS105\n|#||#|"

	got, stats, err := newTestLinker(t, true).Link(files, spring2023)
	if err != nil {
		t.Fatalf("链接失败: %v", err)
	}
	if len(got) != 1 || stats.OrphanSections != 1 {
		t.Errorf("缺少课程的 Section 应跳过, 输出 %d, 跳过 %d", len(got), stats.OrphanSections)
	}
}

func TestLink_FatalParseError(t *testing.T) {
	files := testFiles(t)
	files[RelationCourse] = "garbage"
	if _, _, err := newTestLinker(t, true).Link(files, spring2023); !errors.Is(err, apperrors.ErrMalformedHeader) {
		t.Errorf("期望 ErrMalformedHeader, 实际 %v", err)
	}

	files = testFiles(t)
	files[RelationStaff] = `{"not":"array"}`
	if _, _, err := newTestLinker(t, true).Link(files, spring2023); !errors.Is(err, apperrors.ErrNotArray) {
		t.Errorf("期望 ErrNotArray, 实际 %v", err)
	}

	files = testFiles(t)
	delete(files, RelationPermCount)
	if _, _, err := newTestLinker(t, true).Link(files, spring2023); err == nil {
		t.Error("缺少关系数据时应返回错误")
	}
}

func TestLink_DelimitedCourses(t *testing.T) {
	sep := "||`||"
	files := testFiles(t)
	files[RelationCourse] = `"externalId"` + sep + `"courseTitle"` + sep + `"institutionExternalId"` + sep + `"description"` + "\n" +
		`"CSCI105  HM"` + sep + `"Computer Systems"` + sep + `"HM"` + sep + "\"Description for CS105||``||\"" + "\n" +
		`"ENGR085A HM"` + sep + `"Digital Electronics"` + sep + `"HM"` + sep + `"Description for E85A"` + "\n"

	resolver, _ := location.NewDefaultResolver(zap.NewNop())
	l := New(resolver, Options{Strict: true, CourseFormat: CourseFormatDelimited}, zap.NewNop())
	got, _, err := l.Link(files, spring2023)
	if err != nil {
		t.Fatalf("链接失败: %v", err)
	}
	if diff := cmp.Diff(expectedSections(), got); diff != "" {
		t.Errorf("链接结果不符 (-want +got):\n%s", diff)
	}
}

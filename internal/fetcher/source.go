// Package fetcher 定时从教务系统抓取各数据源，维护内存与磁盘缓存，并在每次成功抓取后重新链接入库。
package fetcher

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperschedule/hyperschedule-sub000/internal/linker"
	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
)

// Param 上游接口的查询参数
type Param string

const (
	ParamYear    Param = "year"
	ParamSession Param = "session"
	ParamCatalog Param = "catalog"
)

// Source 一个上游数据源
type Source struct {
	// Name 与链接引擎的关系名一致
	Name     string
	Path     string
	Params   []Param
	Interval time.Duration
	// SaveAs 磁盘缓存文件名
	SaveAs string
}

// DefaultSources 全部数据源及默认轮询间隔，变化越频繁的数据轮询越密
func DefaultSources() []Source {
	return []Source{
		{Name: linker.RelationPermCount, Path: "permCount", Interval: time.Minute, SaveAs: "perm-count.json"},
		{Name: linker.RelationCourseSection, Path: "course-section", Interval: time.Minute, SaveAs: "course-section.json"},
		{Name: linker.RelationStaff, Path: "staff", Interval: time.Hour, SaveAs: "staff.json"},
		{Name: linker.RelationAltStaff, Path: "alt-staff", Interval: time.Hour, SaveAs: "alt-staff.json"},
		{Name: linker.RelationCourse, Path: "course", Interval: time.Hour, SaveAs: "course.txt"},
		{Name: linker.RelationCourseSectionSchedule, Path: "course-section-schedule", Interval: time.Hour, SaveAs: "course-section-schedule.json"},
		{Name: linker.RelationCalendarSession, Path: "course-session", Params: []Param{ParamYear}, Interval: time.Hour, SaveAs: "calendar-session.json"},
		{Name: linker.RelationCalendarSessionSection, Path: "calendar-session-section", Interval: time.Hour, SaveAs: "calendar-session-section.json"},
		{Name: linker.RelationSectionInstructor, Path: "section-instructor", Interval: time.Hour, SaveAs: "section-instructor.json"},
		{Name: linker.RelationCourseArea, Path: "course-area", Params: []Param{ParamCatalog}, Interval: 24 * time.Hour, SaveAs: "course-area.json"},
	}
}

// WithIntervals 按名称覆盖轮询间隔，返回新切片
func WithIntervals(sources []Source, overrides map[string]time.Duration) []Source {
	out := make([]Source, len(sources))
	copy(out, sources)
	for i := range out {
		if d, ok := overrides[out[i].Name]; ok && d > 0 {
			out[i].Interval = d
		}
	}
	return out
}

// ComputeParams 由学期推出全部查询参数
func ComputeParams(term model.TermIdentifier) map[Param]string {
	return map[Param]string{
		ParamYear:    strconv.Itoa(term.Year),
		ParamSession: string(term.Term),
		ParamCatalog: term.CatalogCode(),
	}
}

// Query 该数据源的查询串，参数名为大写
func (s Source) Query(term model.TermIdentifier) url.Values {
	if len(s.Params) == 0 {
		return nil
	}
	params := ComputeParams(term)
	q := url.Values{}
	for _, p := range s.Params {
		q.Set(strings.ToUpper(string(p)), params[p])
	}
	return q
}

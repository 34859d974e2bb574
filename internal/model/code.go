package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CourseCode 课程代码，不含学期信息，用于跨学期识别同一门课
type CourseCode struct {
	// 2-4 位大写院系代码，例如 CSCI、PE、HSA
	Department   string `json:"department"   validate:"required,max=4"`
	CourseNumber int    `json:"courseNumber" validate:"min=0,max=999"`
	Suffix       string `json:"suffix"       validate:"max=2"`
	// 课程代码最后两位，例如 SC、HM、JT、AF
	Affiliation string `json:"affiliation" validate:"len=2"`
}

// String 课程代码的可读形式，例如 CSCI 005 HM，同时作为课程关联键
func (c CourseCode) String() string {
	return fmt.Sprintf("%s %03d%s %s", c.Department, c.CourseNumber, c.Suffix, c.Affiliation)
}

// Half 半学期标记，例如秋季的 F1/F2、春季的 P1/P2、夏季的 H1..H5
type Half struct {
	Prefix string `json:"prefix" validate:"len=1"`
	Number int    `json:"number" validate:"min=0,max=9"`
}

func (h Half) String() string {
	return h.Prefix + strconv.Itoa(h.Number)
}

// SectionIdentifier Section 的复合自然键，相等性按结构比较
type SectionIdentifier struct {
	CourseCode
	SectionNumber int   `json:"sectionNumber" validate:"min=0,max=99"`
	Term          Term  `json:"term"          validate:"oneof=FA SP SU"`
	Year          int   `json:"year"          validate:"min=1900,max=2999"`
	Half          *Half `json:"half"          validate:"omitempty"`
}

// String 长格式，例如 MCBI 118A HM-01 SP2023 P1，作为 Section 关联键
func (id SectionIdentifier) String() string {
	half := ""
	if id.Half != nil {
		half = id.Half.String()
	}
	return strings.TrimSpace(fmt.Sprintf("%s-%02d %s%d %s",
		id.CourseCode.String(), id.SectionNumber, id.Term, id.Year, half))
}

// TermIdentifier 所属学期
func (id SectionIdentifier) TermIdentifier() TermIdentifier {
	return TermIdentifier{Term: id.Term, Year: id.Year}
}

// Equal 结构相等
func (id SectionIdentifier) Equal(other SectionIdentifier) bool {
	if id.CourseCode != other.CourseCode ||
		id.SectionNumber != other.SectionNumber ||
		id.Term != other.Term ||
		id.Year != other.Year {
		return false
	}
	if id.Half == nil || other.Half == nil {
		return id.Half == nil && other.Half == nil
	}
	return *id.Half == *other.Half
}

var sectionKeyRegex = regexp.MustCompile(
	`^([A-Z]{1,4}) (\d{3})([A-Z0-9]{0,2}) ([A-Z]{2})-(\d{2}) (FA|SP|SU)(\d{4})(?: ([A-Z])(\d))?$`,
)

// ParseSectionIdentifier 解析 String 生成的长格式，两者互逆
func ParseSectionIdentifier(s string) (SectionIdentifier, error) {
	m := sectionKeyRegex.FindStringSubmatch(s)
	if m == nil {
		return SectionIdentifier{}, fmt.Errorf("Section 标识格式错误: %q", s)
	}
	number, _ := strconv.Atoi(m[2])
	section, _ := strconv.Atoi(m[5])
	year, _ := strconv.Atoi(m[7])

	id := SectionIdentifier{
		CourseCode: CourseCode{
			Department:   m[1],
			CourseNumber: number,
			Suffix:       m[3],
			Affiliation:  m[4],
		},
		SectionNumber: section,
		Term:          Term(m[6]),
		Year:          year,
	}
	if m[8] != "" {
		n, _ := strconv.Atoi(m[9])
		id.Half = &Half{Prefix: m[8], Number: n}
	}
	return id, nil
}

// ── 教务系统（CX）原始格式 ──

// cxCourseCodeRegex 11 字符课程代码，例如 AFRI121IOAF、ART 005  PO、CSCI062 LPO
var cxCourseCodeRegex = regexp.MustCompile(
	`^([A-Z ]{4})(\d{3})([A-Z0-9 ]{2}| {0,2}) *([A-Z]{2})$`,
)

// cxSectionIDRegex 例如 CSCI062 LPO-01 SP2023、ENGR072  HM-01 SP2023P1
var cxSectionIDRegex = regexp.MustCompile(
	`^([A-Z ]{4})(\d{3})([A-Z0-9 ]{2}| {0,2})([A-Z]{2})-(\d{2}) (FA|SU|SP)(\d{4})(?:([FSPHZ])(\d))?$`,
)

// ParseCXCourseCode 解析教务系统课程代码
func ParseCXCourseCode(code string) (CourseCode, error) {
	m := cxCourseCodeRegex.FindStringSubmatch(code)
	if m == nil {
		return CourseCode{}, fmt.Errorf("课程代码格式错误: %q", code)
	}
	number, _ := strconv.Atoi(m[2])
	return CourseCode{
		Department:   strings.TrimSpace(m[1]),
		CourseNumber: number,
		Suffix:       strings.TrimSpace(m[3]),
		Affiliation:  m[4],
	}, nil
}

// ParseCXSectionIdentifier 解析教务系统 Section 标识
func ParseCXSectionIdentifier(code string) (SectionIdentifier, error) {
	m := cxSectionIDRegex.FindStringSubmatch(code)
	if m == nil {
		return SectionIdentifier{}, fmt.Errorf("Section 标识格式错误: %q", code)
	}
	number, _ := strconv.Atoi(m[2])
	section, _ := strconv.Atoi(m[5])
	year, _ := strconv.Atoi(m[7])

	id := SectionIdentifier{
		CourseCode: CourseCode{
			Department:   strings.TrimSpace(m[1]),
			CourseNumber: number,
			Suffix:       strings.TrimSpace(m[3]),
			Affiliation:  m[4],
		},
		SectionNumber: section,
		Term:          Term(m[6]),
		Year:          year,
	}
	if m[8] != "" && m[9] != "" {
		n, _ := strconv.Atoi(m[9])
		id.Half = &Half{Prefix: m[8], Number: n}
	}
	return id, nil
}

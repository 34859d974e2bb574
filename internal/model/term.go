package model

import (
	"fmt"
	"regexp"
	"strconv"
)

// Term 学期代码
type Term string

const (
	TermFall   Term = "FA"
	TermSpring Term = "SP"
	TermSummer Term = "SU"
)

// TermIdentifier 学期标识，字符串形式如 SP2023
type TermIdentifier struct {
	Term Term `json:"term" validate:"oneof=FA SP SU"`
	Year int  `json:"year" validate:"min=1900,max=2999"`
}

func (t TermIdentifier) String() string {
	return fmt.Sprintf("%s%d", t.Term, t.Year)
}

// CatalogCode 课程目录代码：UG + 两位年份。秋季学期用当年目录，春夏学期用上一年
func (t TermIdentifier) CatalogCode() string {
	year := t.Year
	if t.Term != TermFall {
		year--
	}
	return fmt.Sprintf("UG%02d", year%100)
}

var termIdentifierRegex = regexp.MustCompile(`^(FA|SP|SU)(\d{4})$`)

// ParseTermIdentifier 解析 SP2023 形式的学期标识
func ParseTermIdentifier(s string) (TermIdentifier, error) {
	m := termIdentifierRegex.FindStringSubmatch(s)
	if m == nil {
		return TermIdentifier{}, fmt.Errorf("学期标识格式错误: %q", s)
	}
	year, _ := strconv.Atoi(m[2])
	return TermIdentifier{Term: Term(m[1]), Year: year}, nil
}

package linker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
)

var calendarDateRegex = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)

// parseCalendarDate yyyymmdd → CourseDate
func parseCalendarDate(s string) (model.CourseDate, error) {
	m := calendarDateRegex.FindStringSubmatch(s)
	if m == nil {
		return model.CourseDate{}, fmt.Errorf("日期格式错误: %q", s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return model.CourseDate{}, fmt.Errorf("日期超出范围: %q", s)
	}
	return model.CourseDate{Year: year, Month: month, Day: day}, nil
}

// parseTime 24 小时制 HHMM（可省略前导零，例如 935、0）→ 距午夜秒数
func parseTime(s string) (int, error) {
	if len(s) == 0 || len(s) > 4 {
		return 0, fmt.Errorf("时间格式错误: %q", s)
	}
	padded := strings.Repeat("0", 4-len(s)) + s
	hr, err1 := strconv.Atoi(padded[:2])
	mn, err2 := strconv.Atoi(padded[2:])
	if err1 != nil || err2 != nil || hr < 0 || hr > 23 || mn < 0 || mn > 59 {
		return 0, fmt.Errorf("时间格式错误: %q", s)
	}
	return hr*3600 + mn*60, nil
}

// parseWeekdays 7 位星期掩码，例如 -M-W-F-，每一位只能是 - 或对应星期字母
func parseWeekdays(s string) ([]model.Weekday, error) {
	if len(s) != len(model.WeekdaysInOrder) {
		return nil, fmt.Errorf("星期掩码格式错误: %q", s)
	}
	days := make([]model.Weekday, 0, 7)
	for i, wd := range model.WeekdaysInOrder {
		c := s[i : i+1]
		if c == "-" {
			continue
		}
		if c != string(wd) {
			return nil, fmt.Errorf("星期掩码格式错误: %q", s)
		}
		days = append(days, wd)
	}
	return days, nil
}

// staffName 优先使用名和姓；两者都为空时由 "last, first middle,,suffix" 形式的全名推出
func staffName(row StaffRow) string {
	if row.FirstName == "" && row.LastName == "" {
		parts := strings.Split(row.FullName, ",")
		if len(parts) > 2 {
			parts = parts[:2]
		}
		for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
			parts[i], parts[j] = parts[j], parts[i]
		}
		return strings.TrimSpace(strings.Join(parts, " "))
	}
	return strings.TrimSpace(row.FirstName + " " + row.LastName)
}

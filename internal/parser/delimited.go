package parser

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/hyperschedule/hyperschedule-sub000/pkg/errors"
)

// DelimitedSpec 分隔文本的解析规格
type DelimitedSpec struct {
	Separator string
	HasHeader bool
	// Fields 逻辑字段名 → 表头列名，HasHeader 时使用
	Fields map[string]string
	// Columns 逻辑字段名 → 列序号，无表头时使用
	Columns map[string]int
	// NewlineEscape 单元格内换行的转义序列，例如 ||``||；空串表示不解码
	NewlineEscape string
}

// DelimitedWarningKind 分隔文本解析告警类型
type DelimitedWarningKind string

const (
	// MalformedCell 单元格未被一对双引号包裹，按原文保留
	MalformedCell DelimitedWarningKind = "MalformedCell"
	// InconsistentRowLength 行宽与表头（或首行）不一致，仍尝试提取字段
	InconsistentRowLength DelimitedWarningKind = "InconsistentRowLength"
)

// DelimitedWarning Row 为输入中的行号（表头为第 0 行）
type DelimitedWarning struct {
	Kind   DelimitedWarningKind
	Row    int
	Column int // MalformedCell
	Length int // InconsistentRowLength
}

func (w DelimitedWarning) String() string {
	if w.Kind == MalformedCell {
		return fmt.Sprintf("%s: row=%d column=%d", w.Kind, w.Row, w.Column)
	}
	return fmt.Sprintf("%s: row=%d length=%d", w.Kind, w.Row, w.Length)
}

// DelimitedResult 解析结果
type DelimitedResult struct {
	Records  []map[string]string
	Warnings []DelimitedWarning
}

// MissingColumnsError 表头缺少声明的列，整份输入不可用
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", apperrors.ErrMissingColumns.Error(), strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Unwrap() error { return apperrors.ErrMissingColumns }

// parseCell 去掉包裹的双引号；未包裹时原样返回并标记 malformed
func parseCell(cell string) (string, bool) {
	if len(cell) >= 2 && strings.HasPrefix(cell, `"`) && strings.HasSuffix(cell, `"`) {
		return cell[1 : len(cell)-1], false
	}
	return cell, true
}

// ParseDelimited 解析分隔文本。
// 有表头时缺少任一声明列返回 *MissingColumnsError；
// 列数不足以覆盖所需最大列序号的行被静默丢弃。
func ParseDelimited(spec DelimitedSpec, data string) (*DelimitedResult, error) {
	result := &DelimitedResult{Records: []map[string]string{}}

	trimmed := strings.TrimSpace(data)
	if trimmed == "" && !spec.HasHeader {
		return result, nil
	}
	lines := strings.Split(trimmed, "\n")

	// 逻辑字段名 → 列序号
	index := make(map[string]int)
	maxIndex := -1
	width := -1
	first := 0

	if spec.HasHeader {
		header := strings.Split(lines[0], spec.Separator)
		byName := make(map[string]int, len(header))
		for j, raw := range header {
			name, malformed := parseCell(raw)
			if malformed {
				result.Warnings = append(result.Warnings, DelimitedWarning{Kind: MalformedCell, Row: 0, Column: j})
			}
			byName[name] = j
		}

		var missing []string
		for field, column := range spec.Fields {
			j, ok := byName[column]
			if !ok {
				missing = append(missing, column)
				continue
			}
			index[field] = j
			if j > maxIndex {
				maxIndex = j
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return nil, &MissingColumnsError{Columns: missing}
		}
		width = len(header)
		first = 1
	} else {
		for field, j := range spec.Columns {
			index[field] = j
			if j > maxIndex {
				maxIndex = j
			}
		}
	}

	for i := first; i < len(lines); i++ {
		cells := strings.Split(lines[i], spec.Separator)
		if width < 0 {
			width = len(cells)
		}
		if len(cells) <= maxIndex {
			continue
		}

		row := make([]string, len(cells))
		for j, raw := range cells {
			value, malformed := parseCell(raw)
			if malformed {
				result.Warnings = append(result.Warnings, DelimitedWarning{Kind: MalformedCell, Row: i, Column: j})
			}
			if spec.NewlineEscape != "" {
				value = strings.ReplaceAll(value, spec.NewlineEscape, "\n")
			}
			row[j] = value
		}
		if len(row) != width {
			result.Warnings = append(result.Warnings, DelimitedWarning{Kind: InconsistentRowLength, Row: i, Length: len(row)})
		}

		record := make(map[string]string, len(index))
		for field, j := range index {
			record[field] = row[j]
		}
		result.Records = append(result.Records, record)
	}

	return result, nil
}

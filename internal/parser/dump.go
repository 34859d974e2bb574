package parser

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/hyperschedule/hyperschedule-sub000/pkg/errors"
)

// 旧式导出格式：OUT_START|<n>|@| 之后为数据区，记录以 |#| 分隔，字段以 |^| 分隔，
// 最后一条记录之后紧跟一个空记录作为结束标记
const (
	dumpRecordSeparator = "|#|"
	dumpFieldSeparator  = "|^|"
)

var dumpHeaderRegex = regexp.MustCompile(`OUT_START\|\d+\|@\|`)

// DumpWarningKind 旧式导出解析告警类型
type DumpWarningKind string

const (
	// InsufficientEntryValues 字段数不足，该记录被跳过
	InsufficientEntryValues DumpWarningKind = "InsufficientEntryValues"
	// ExtraneousEntryValues 字段数过多，只取前 N 个
	ExtraneousEntryValues DumpWarningKind = "ExtraneousEntryValues"
	// MissingSentinel 缺少空记录结束标记
	MissingSentinel DumpWarningKind = "MissingSentinel"
)

// DumpWarning 非致命告警；MissingSentinel 时其余字段为零值
type DumpWarning struct {
	Kind       DumpWarningKind
	EntryIndex int
	Desired    int
	Given      int
}

func (w DumpWarning) String() string {
	if w.Kind == MissingSentinel {
		return string(w.Kind)
	}
	return fmt.Sprintf("%s: entry=%d desired=%d given=%d", w.Kind, w.EntryIndex, w.Desired, w.Given)
}

// DumpResult 解析结果，Records 保持输入顺序
type DumpResult struct {
	Records  []map[string]string
	Warnings []DumpWarning
}

// ParseDump 解析旧式导出数据。
// fields 按列顺序给出字段名，空串表示跳过该列；下游用到的每个字段名都必须出现在 fields 中。
// 找不到 OUT_START 头标记时返回 ErrMalformedHeader。
func ParseDump(fields []string, data string) (*DumpResult, error) {
	loc := dumpHeaderRegex.FindStringIndex(data)
	if loc == nil {
		return nil, apperrors.ErrMalformedHeader
	}

	result := &DumpResult{Records: []map[string]string{}}
	entries := strings.Split(data[loc[1]:], dumpRecordSeparator)

	hasSentinel := false
	for i, entry := range entries {
		if entry == "" {
			hasSentinel = true
			break
		}

		values := strings.Split(entry, dumpFieldSeparator)
		if len(values) < len(fields) {
			result.Warnings = append(result.Warnings, DumpWarning{
				Kind: InsufficientEntryValues, EntryIndex: i,
				Desired: len(fields), Given: len(values),
			})
			continue
		}
		if len(values) > len(fields) {
			result.Warnings = append(result.Warnings, DumpWarning{
				Kind: ExtraneousEntryValues, EntryIndex: i,
				Desired: len(fields), Given: len(values),
			})
		}

		record := make(map[string]string, len(fields))
		for j, name := range fields {
			if name == "" {
				continue
			}
			record[name] = values[j]
		}
		result.Records = append(result.Records, record)
	}

	if !hasSentinel {
		result.Warnings = append(result.Warnings, DumpWarning{Kind: MissingSentinel})
	}
	return result, nil
}

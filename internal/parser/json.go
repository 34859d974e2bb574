package parser

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	apperrors "github.com/hyperschedule/hyperschedule-sub000/pkg/errors"
)

type transformKind int

const (
	transformKeep transformKind = iota
	transformDrop
	transformRename
	transformConvert
)

// ConvertFunc 字段转换函数：返回输出字段名与值。输入中缺少该字段时 v 为 nil
type ConvertFunc func(v any) (name string, value any, err error)

// FieldTransform 单个输入字段的处理方式，只能由 Keep/Drop/Rename/Convert 构造
type FieldTransform struct {
	kind    transformKind
	to      string
	convert ConvertFunc
}

// Keep 原名原值透传
func Keep() FieldTransform { return FieldTransform{kind: transformKeep} }

// Drop 丢弃该字段
func Drop() FieldTransform { return FieldTransform{kind: transformDrop} }

// Rename 改名，值不变
func Rename(to string) FieldTransform { return FieldTransform{kind: transformRename, to: to} }

// Convert 改名并转换
func Convert(fn ConvertFunc) FieldTransform { return FieldTransform{kind: transformConvert, convert: fn} }

// Transforms 输入字段名 → 处理方式；未列出的输入字段忽略
type Transforms map[string]FieldTransform

// ItemWarning 单条数据未通过转换或校验，已被丢弃
type ItemWarning struct {
	Index int
	Err   error
}

func (w ItemWarning) String() string {
	return fmt.Sprintf("item %d: %v", w.Index, w.Err)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator 共享的结构校验器，错误信息中的字段名取 json 标签
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// DecodeItem 按转换表生成输出对象，严格解码到 T（不允许多余或缺失字段）后做结构校验
func DecodeItem[T any](item map[string]any, transforms Transforms) (T, error) {
	var out T

	keys := make([]string, 0, len(transforms))
	for k := range transforms {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make(map[string]any, len(transforms))
	for _, key := range keys {
		tr := transforms[key]
		v, present := item[key]
		switch tr.kind {
		case transformKeep:
			if present {
				fields[key] = v
			}
		case transformDrop:
		case transformRename:
			if present {
				fields[tr.to] = v
			}
		case transformConvert:
			name, value, err := tr.convert(v)
			if err != nil {
				return out, fmt.Errorf("字段 %s 转换失败: %w", key, err)
			}
			fields[name] = value
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		ErrorUnset:  true,
		Result:      &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(fields); err != nil {
		return out, fmt.Errorf("结构不符: %w", err)
	}
	if err := Validator().Struct(out); err != nil {
		return out, fmt.Errorf("校验失败: %w", err)
	}
	return out, nil
}

// DecodeItems 逐条解码，失败的条目丢弃并记录告警，整批不会因单条失败而中断
func DecodeItems[T any](items []map[string]any, transforms Transforms) ([]T, []ItemWarning) {
	out := make([]T, 0, len(items))
	var warnings []ItemWarning
	for i, item := range items {
		v, err := DecodeItem[T](item, transforms)
		if err != nil {
			warnings = append(warnings, ItemWarning{Index: i, Err: err})
			continue
		}
		out = append(out, v)
	}
	return out, warnings
}

// DecodeArray 解析原始 JSON 数组后逐条解码；顶层不是数组时返回 ErrNotArray
func DecodeArray[T any](data []byte, transforms Transforms) ([]T, []ItemWarning, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrNotArray, err)
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, nil, apperrors.ErrNotArray
	}

	items := make([]map[string]any, 0, len(arr))
	var warnings []ItemWarning
	index := make([]int, 0, len(arr))
	for i, elem := range arr {
		obj, ok := elem.(map[string]any)
		if !ok {
			warnings = append(warnings, ItemWarning{Index: i, Err: fmt.Errorf("不是 JSON 对象: %T", elem)})
			continue
		}
		items = append(items, obj)
		index = append(index, i)
	}

	out, itemWarnings := DecodeItems[T](items, transforms)
	for _, w := range itemWarnings {
		w.Index = index[w.Index]
		warnings = append(warnings, w)
	}
	sort.SliceStable(warnings, func(a, b int) bool { return warnings[a].Index < warnings[b].Index })
	return out, warnings, nil
}

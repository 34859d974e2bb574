package errors

import "errors"

// ── 解析阶段致命错误：整个数据源本轮不可用，沿用上一轮结果 ──

// ErrMalformedHeader 旧式导出文件缺少 OUT_START 头标记
var ErrMalformedHeader = errors.New("导出文件缺少 OUT_START 头标记")

// ErrMissingColumns 分隔文本缺少声明的必需列
var ErrMissingColumns = errors.New("分隔文本缺少必需列")

// ErrNotArray JSON 数据源顶层不是数组
var ErrNotArray = errors.New("JSON 数据源顶层不是数组")

// ── 抓取与缓存 ──

// ErrCacheMissing 本地缓存中缺少某个数据源的原始数据（首次运行）
var ErrCacheMissing = errors.New("本地原始数据缓存不完整")

// ErrUpstream 上游接口返回非 2xx 状态码
var ErrUpstream = errors.New("上游接口请求失败")

// ── 链接阶段 ──

// ErrInvalidSection 链接结果未通过 Section 结构校验（开发环境下直接中断）
var ErrInvalidSection = errors.New("Section 结构校验失败")

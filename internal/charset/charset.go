// Package charset 修复教务系统导出文本中的编码损坏。
//
// 上游系统会把已经是 UTF-8 的字节再按 Latin-1 解码并重新编码一次，
// 例如 ’ (U+2019) 会变成 "â\x80\x99"；也有按 Windows-1252 透传的情况，
// 同一个 ’ 会变成 "\x92"。这里只做尽力而为的还原。
package charset

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// FixEncoding 还原被二次编码的文本。
// 只要含有 Latin-1 以外的字符就认为原文编码正确，原样返回。
func FixEncoding(s string) string {
	raw := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return s
		}
		raw = append(raw, byte(r))
	}

	if utf8.Valid(raw) {
		return string(raw)
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return s
	}
	return string(decoded)
}

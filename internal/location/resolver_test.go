package location

import (
	"testing"

	"go.uber.org/zap"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(Table{
		"HM": {"SHAN": "Shanahan Center", "BK": "Beckman Hall"},
		"PO": {"LINC": "Lincoln Hall"},
	}, zap.NewNop())

	cases := []struct {
		in   string
		want string
	}{
		{"HM SHAN 2465", "Shanahan Center 2465"},
		{"HM BK B126", "Beckman Hall B126"},
		{"PO LINC ", "Lincoln Hall"},
		{"HM ARR ", "Arranged location"},
		{"CM TBA 101", "To be announced"},
		{" ARR ", "Arranged location"},
		{"HM XXXX 101", "HM XXXX 101"},
		{"ZZ SHAN 101", "ZZ SHAN 101"},
		{" SHAN 101", " SHAN 101"},
		{"HM SHAN", "HM SHAN"},
		{"HM SHAN 2465 B", "HM SHAN 2465 B"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := r.Resolve(tc.in); got != tc.want {
			t.Errorf("Resolve(%q) = %q, 期望 %q", tc.in, got, tc.want)
		}
	}
}

func TestNewDefaultResolver(t *testing.T) {
	r, err := NewDefaultResolver(zap.NewNop())
	if err != nil {
		t.Fatalf("加载内置楼宇表失败: %v", err)
	}
	if got := r.Resolve("HM SHAN B460"); got != "Shanahan Center B460" {
		t.Errorf("内置表解析错误: %q", got)
	}
	if got := r.Resolve("PO EDMS 101"); got == "" {
		t.Error("结果不应为空")
	}
	if len(r.table) < 9 {
		t.Errorf("内置表校区数异常: %d", len(r.table))
	}
}

// Package location 将教务系统的地点代码（例如 HM SHAN 2465）转换为可读的楼宇名称。
package location

import (
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed buildings.yaml
var buildingsYAML []byte

const (
	arrangedLocation = "Arranged location"
	toBeAnnounced    = "To be announced"
)

// Table 校区代码 → 楼宇代码 → 楼宇名称
type Table map[string]map[string]string

// ParseTable 解析 YAML 格式的楼宇表
func ParseTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("解析楼宇表失败: %w", err)
	}
	return t, nil
}

// Resolver 地点代码解析器，只读，可并发使用
type Resolver struct {
	table  Table
	logger *zap.Logger
}

// NewResolver 使用给定楼宇表创建解析器
func NewResolver(table Table, logger *zap.Logger) *Resolver {
	return &Resolver{table: table, logger: logger}
}

// NewDefaultResolver 使用内置楼宇表创建解析器
func NewDefaultResolver(logger *zap.Logger) (*Resolver, error) {
	table, err := ParseTable(buildingsYAML)
	if err != nil {
		return nil, err
	}
	return NewResolver(table, logger), nil
}

// Resolve 解析 "校区 楼宇 房间" 形式的地点代码，房间可为空但空格必须存在。
// 无法解析时原样返回。
func (r *Resolver) Resolve(raw string) string {
	parts := strings.Split(raw, " ")
	if len(parts) != 3 {
		r.unresolved(raw)
		return raw
	}
	campus, loc, room := parts[0], parts[1], parts[2]

	switch loc {
	case "ARR":
		return arrangedLocation
	case "TBA":
		return toBeAnnounced
	}

	if campus == "" {
		r.unresolved(raw)
		return raw
	}
	buildings, ok := r.table[campus]
	if !ok {
		r.unresolved(raw)
		return raw
	}
	building, ok := buildings[loc]
	if !ok {
		r.unresolved(raw)
		return raw
	}

	return strings.TrimSpace(building + " " + room)
}

func (r *Resolver) unresolved(raw string) {
	r.logger.Debug("地点代码无法解析", zap.String("code", raw))
}

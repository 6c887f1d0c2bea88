package renderer

import (
	"fmt"
	"sort"
	"strings"

	"schema-graph/internal/graph"
)

// MermaidRenderer Mermaid ER 图渲染器
type MermaidRenderer struct{}

// NewMermaidRenderer 创建渲染器
func NewMermaidRenderer() *MermaidRenderer {
	return &MermaidRenderer{}
}

// Render 渲染为 Mermaid 格式
func (m *MermaidRenderer) Render(g *graph.SchemaGraph) string {
	var sb strings.Builder
	explorer := graph.NewExplorer(g)

	sb.WriteString("erDiagram\n")

	tables := explorer.AllTables()
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	// 表定义
	for _, tableName := range names {
		table := tables[tableName]
		columns := explorer.ColumnsForTable(tableName)

		sb.WriteString(fmt.Sprintf("    %s {\n", tableName))
		for _, colName := range table.StringSlice("columns") {
			col := columns[colName]
			if col == nil {
				continue
			}
			keys := ""
			if col.Bool("is_primary_key") {
				keys += " PK"
			}
			if col.Bool("is_foreign_key") {
				keys += " FK"
			}
			sb.WriteString(fmt.Sprintf("        %s %s%s\n",
				mermaidType(col.Properties["data_type"]), colName, keys))
		}
		sb.WriteString("    }\n")
	}

	sb.WriteString("\n")

	// 引用关系，标注引用路径
	for _, edge := range g.ForeignKeyEdges() {
		sb.WriteString(fmt.Sprintf("    %s ||--o{ %s : \"%s\"\n",
			edge.To, edge.From, edge.ReferencePath()))
	}

	return sb.String()
}

// mermaidType Mermaid 不接受带括号和空格的类型名
func mermaidType(v interface{}) string {
	s, _ := v.(string)
	if i := strings.IndexAny(s, "( "); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

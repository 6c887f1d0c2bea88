package renderer

import (
	"fmt"
	"sort"
	"strings"

	"schema-graph/internal/graph"
)

// MarkdownRenderer Markdown 数据字典渲染器
type MarkdownRenderer struct{}

// NewMarkdownRenderer 创建渲染器
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render 渲染为 Markdown 格式
// 表按名称排序，输出跨运行稳定。
func (m *MarkdownRenderer) Render(g *graph.SchemaGraph) string {
	var sb strings.Builder
	explorer := graph.NewExplorer(g)

	sb.WriteString("# 数据库结构文档\n\n")
	sb.WriteString("## 表结构\n\n")

	tables := explorer.AllTables()
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, tableName := range names {
		table := tables[tableName]
		sb.WriteString(fmt.Sprintf("### %s\n\n", tableName))
		sb.WriteString(fmt.Sprintf("行数: %v\n\n", table.Properties["row_count"]))

		sb.WriteString("| 列名 | 类型 | 可空 | 主键 | 外键 | 完整度 | 描述 |\n")
		sb.WriteString("|------|------|------|------|------|--------|------|\n")

		columns := explorer.ColumnsForTable(tableName)
		// 按声明顺序输出列
		for _, colName := range table.StringSlice("columns") {
			col := columns[colName]
			if col == nil {
				continue
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %v | %s |\n",
				colName,
				col.Properties["data_type"],
				yesNo(col.Bool("is_nullable")),
				mark(col.Bool("is_primary_key")),
				mark(col.Bool("is_foreign_key")),
				col.Properties["data_integrity"],
				description(col),
			))
		}
		sb.WriteString("\n")

		m.renderTableRelations(&sb, tableName, table)
	}

	return sb.String()
}

// renderTableRelations 渲染表的引用关系
func (m *MarkdownRenderer) renderTableRelations(sb *strings.Builder, tableName string, table *graph.Node) {
	refTo := table.StringSlice("reference_to")
	refBy := table.StringSlice("referenced_by")
	if len(refTo) == 0 && len(refBy) == 0 {
		return
	}

	sb.WriteString("#### 关系\n\n")
	for _, path := range refTo {
		sb.WriteString(fmt.Sprintf("- **引用** `%s`\n", path))
	}
	for _, path := range refBy {
		sb.WriteString(fmt.Sprintf("- **被引用** `%s`\n", path))
	}
	sb.WriteString("\n")
}

func description(col *graph.Node) string {
	d, _ := col.Properties["column_description"].(string)
	return d
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

func mark(b bool) string {
	if b {
		return "✓"
	}
	return ""
}

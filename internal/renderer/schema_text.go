package renderer

import (
	"fmt"
	"sort"
	"strings"

	"schema-graph/internal/graph"
)

// DetailLevel 描述详略级别
type DetailLevel string

const (
	DetailFull    DetailLevel = "full"
	DetailBrief   DetailLevel = "brief"
	DetailMinimal DetailLevel = "minimal"
)

// SchemaTextGenerator 结构化文本描述生成器
// 把产物渲染成下游 Text-to-SQL 提示词使用的表描述块。
type SchemaTextGenerator struct {
	explorer *graph.Explorer
	tables   map[string]*graph.Node
}

// NewSchemaTextGenerator 创建生成器
func NewSchemaTextGenerator(g *graph.SchemaGraph) *SchemaTextGenerator {
	explorer := graph.NewExplorer(g)
	return &SchemaTextGenerator{
		explorer: explorer,
		tables:   explorer.AllTables(),
	}
}

// TableNames 全部表名，升序
func (s *SchemaTextGenerator) TableNames() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenerateTableDescription 表级描述
// selectedTables 非空时只罗列与这些表相关的引用路径。
func (s *SchemaTextGenerator) GenerateTableDescription(tableName string, level DetailLevel, selectedTables []string) string {
	table, ok := s.tables[tableName]
	if !ok {
		return fmt.Sprintf("# Table: %s (No information available)", tableName)
	}

	columns := table.StringSlice("columns")
	lines := []string{fmt.Sprintf("# Table: %s", tableName), "["}

	switch level {
	case DetailMinimal:
		lines = append(lines, fmt.Sprintf("Columns: %s", strings.Join(columns, ", ")))
	case DetailBrief:
		lines = append(lines, fmt.Sprintf("Columns: %s", strings.Join(columns, ", ")))
		if pk := formatPrimaryKey(table.Properties["primary_key"]); pk != "" {
			lines = append(lines, fmt.Sprintf("Primary Key: %s", pk))
		}
		lines = append(lines, fmt.Sprintf("Row Count: %v", table.Properties["row_count"]))
	default:
		lines = append(lines, fmt.Sprintf("Columns: %s", strings.Join(columns, ", ")))
		lines = append(lines, fmt.Sprintf("Row Count: %v", table.Properties["row_count"]))
		if paths := s.referencePaths(table, selectedTables); len(paths) > 0 {
			lines = append(lines, fmt.Sprintf("Reference Path: [%s]", strings.Join(paths, ", ")))
		}
	}
	return strings.Join(lines, "\n")
}

// referencePaths 表的出入引用路径
func (s *SchemaTextGenerator) referencePaths(table *graph.Node, selectedTables []string) []string {
	if len(selectedTables) > 0 {
		var paths []string
		for _, other := range selectedTables {
			if other == table.Name {
				continue
			}
			paths = append(paths, s.explorer.ForeignKeysBetween(table.Name, other)...)
		}
		return paths
	}
	return append(table.StringSlice("reference_to"), table.StringSlice("referenced_by")...)
}

// GenerateColumnDescription 列级描述
func (s *SchemaTextGenerator) GenerateColumnDescription(col *graph.Node, level DetailLevel) string {
	props := col.Properties
	baseType := baseDataType(props["data_type"])

	details := []string{fmt.Sprintf("(%s:%s", col.Name, baseType)}
	if level == DetailMinimal {
		return details[0] + ")"
	}

	if d, ok := props["column_description"].(string); ok && d != "" {
		details = append(details, d)
	}
	if keys := keyInfo(col); keys != "" {
		details = append(details, keys)
	}
	if samples := formatSamples(props["samples"]); samples != "" {
		details = append(details, samples)
	}
	if col.Bool("is_nullable") {
		details = append(details, "Nullable")
	} else {
		details = append(details, "Not Nullable")
	}

	if level == DetailBrief {
		return strings.Join(details, ",") + ")"
	}

	if integrity, ok := props["data_integrity"].(string); ok {
		details = append(details, fmt.Sprintf("DataIntegrity: %s", integrity))
	}
	if nulls, ok := props["null_count"]; ok && fmt.Sprintf("%v", nulls) != "0" {
		details = append(details, fmt.Sprintf("NullCount: %v", nulls))
	}

	for _, key := range []string{"range", "mean", "mode", "categories", "avg_length", "word_frequency", "time_span", "earliest_time", "latest_time"} {
		if v, ok := props[key]; ok {
			details = append(details, fmt.Sprintf("%s: %v", statLabel(key), v))
		}
	}

	return strings.Join(details, ",") + ")"
}

// GenerateCombinedDescription 表加全部列的组合描述
func (s *SchemaTextGenerator) GenerateCombinedDescription(tableName string, level DetailLevel, selectedTables []string) string {
	parts := []string{s.GenerateTableDescription(tableName, level, selectedTables)}

	table, ok := s.tables[tableName]
	if !ok {
		return parts[0]
	}
	columns := s.explorer.ColumnsForTable(tableName)
	for _, colName := range table.StringSlice("columns") {
		if col := columns[colName]; col != nil {
			parts = append(parts, s.GenerateColumnDescription(col, level))
		}
	}
	return strings.Join(parts, "\n") + "\n]"
}

// keyInfo 主键/外键标注
func keyInfo(col *graph.Node) string {
	var keys []string
	if col.Bool("is_primary_key") {
		keys = append(keys, "Primary Key")
	}
	if col.Bool("is_foreign_key") {
		keys = append(keys, "Foreign Key")
	}
	return strings.Join(keys, ", ")
}

// formatSamples 样例值列表
func formatSamples(v interface{}) string {
	samples, ok := v.([]interface{})
	if !ok || len(samples) == 0 {
		return ""
	}
	parts := make([]string, 0, len(samples))
	for _, s := range samples {
		parts = append(parts, fmt.Sprintf("%v", s))
	}
	return fmt.Sprintf("Examples: [%s]", strings.Join(parts, ", "))
}

// formatPrimaryKey 主键的单列/复合两种形态
func formatPrimaryKey(v interface{}) string {
	switch pk := v.(type) {
	case string:
		return pk
	case []string:
		return strings.Join(pk, ", ")
	case []interface{}:
		parts := make([]string, 0, len(pk))
		for _, p := range pk {
			parts = append(parts, fmt.Sprintf("%v", p))
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// baseDataType 去掉长度修饰的类型名
func baseDataType(v interface{}) string {
	s, _ := v.(string)
	if i := strings.Index(s, "("); i >= 0 {
		s = s[:i]
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

// statLabel 统计属性在文本里的标签
func statLabel(key string) string {
	switch key {
	case "range":
		return "Range"
	case "mean":
		return "NumericMean"
	case "mode":
		return "NumericMode"
	case "categories":
		return "TextCategories"
	case "avg_length":
		return "AverageCharLength"
	case "word_frequency":
		return "WordFrequency"
	case "time_span":
		return "TimeSpan"
	case "earliest_time":
		return "EarliestTime"
	case "latest_time":
		return "LatestTime"
	default:
		return key
	}
}

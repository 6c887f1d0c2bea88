package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateNode 节点键重复
	ErrDuplicateNode = errors.New("duplicate node")
	// ErrUnknownTable 引用了不存在的表节点
	ErrUnknownTable = errors.New("unknown table")
	// ErrUnknownColumn 引用了不存在的列节点
	ErrUnknownColumn = errors.New("unknown column")
)

// Builder 图构建器
// 节点先于关联边写入，FOREIGN_KEY 边全部就位后由 Finalize 统一
// 回填跨节点属性，避免外键重复声明时写出重复条目。
type Builder struct {
	g *SchemaGraph
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{g: NewSchemaGraph()}
}

// ColumnAttrs 列节点的输入属性
type ColumnAttrs struct {
	Name              string
	DataType          string // 原始声明类型，这里统一转大写
	IsPrimaryKey      bool
	IsNullable        bool
	Stats             map[string]interface{} // 拍平后的统计块
	ColumnDescription string
	ValueDescription  string
}

// AddTable 添加表节点
func (b *Builder) AddTable(name string, rowCount int64, columns, primaryKey []string) error {
	if _, exists := b.g.Nodes[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}

	// 单列主键存列名，复合主键存有序列表
	var pk interface{}
	switch len(primaryKey) {
	case 0:
		pk = nil
	case 1:
		pk = primaryKey[0]
	default:
		pk = append([]string(nil), primaryKey...)
	}

	b.g.addNode(&Node{
		ID:   name,
		Type: NodeTypeTable,
		Name: name,
		Properties: map[string]interface{}{
			"type":          string(NodeTypeTable),
			"name":          name,
			"row_count":     rowCount,
			"column_count":  len(columns),
			"columns":       append([]string{}, columns...),
			"primary_key":   pk,
			"foreign_key":   []string{},
			"reference_to":  []string{},
			"referenced_by": []string{},
		},
	})
	return nil
}

// AddColumn 添加列节点，并在同一次调用中插入 HAS_COLUMN 边
func (b *Builder) AddColumn(table string, col ColumnAttrs) error {
	tableNode := b.g.Nodes[table]
	if tableNode == nil || tableNode.Type != NodeTypeTable {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	id := ColumnID(table, col.Name)
	if _, exists := b.g.Nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}

	props := map[string]interface{}{
		"type":           string(NodeTypeColumn),
		"name":           col.Name,
		"belongs_to":     table,
		"data_type":      strings.ToUpper(col.DataType),
		"is_primary_key": col.IsPrimaryKey,
		"is_foreign_key": false, // Finalize 阶段回填
		"is_nullable":    col.IsNullable,
	}
	for k, v := range col.Stats {
		props[k] = v
	}
	if col.ColumnDescription != "" {
		props["column_description"] = col.ColumnDescription
	}
	if col.ValueDescription != "" {
		props["value_description"] = col.ValueDescription
	}

	b.g.addNode(&Node{ID: id, Type: NodeTypeColumn, Name: col.Name, Properties: props})

	relation := RelationNormalColumn
	if col.IsPrimaryKey {
		relation = RelationPrimaryKey
	}
	b.g.addEdge(&Edge{
		ID:   fmt.Sprintf("%s->%s", table, id),
		Type: EdgeTypeHasColumn,
		From: table,
		To:   id,
		Properties: map[string]interface{}{
			"type":          string(EdgeTypeHasColumn),
			"relation_type": relation,
		},
	})
	return nil
}

// AddForeignKey 添加外键边
// 两端表和列必须已存在；完全相同的四元组静默忽略。
func (b *Builder) AddForeignKey(fromTable, fromColumn, toTable, toColumn string) error {
	for _, table := range []string{fromTable, toTable} {
		if n := b.g.Nodes[table]; n == nil || n.Type != NodeTypeTable {
			return fmt.Errorf("%w: %s", ErrUnknownTable, table)
		}
	}
	for _, col := range []string{ColumnID(fromTable, fromColumn), ColumnID(toTable, toColumn)} {
		if n := b.g.Nodes[col]; n == nil || n.Type != NodeTypeColumn {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, col)
		}
	}

	path := FormatReferencePath(fromTable, fromColumn, toTable, toColumn)
	if _, exists := b.g.fkTuples[path]; exists {
		return nil
	}

	hash := FKHash(fromTable, fromColumn, toTable, toColumn)
	b.g.addEdge(&Edge{
		ID:   hash,
		Type: EdgeTypeForeignKey,
		From: fromTable,
		To:   toTable,
		Properties: map[string]interface{}{
			"type":           string(EdgeTypeForeignKey),
			"from_table":     fromTable,
			"from_column":    fromColumn,
			"to_table":       toTable,
			"to_column":      toColumn,
			"reference_path": path,
			"fk_hash":        hash,
		},
	})
	return nil
}

// Finalize 回填跨节点属性
// 遍历全部 FOREIGN_KEY 边：reference_to / referenced_by 从零重建，
// 参与列标记 is_foreign_key，HAS_COLUMN 关系类型相应升级。
func (b *Builder) Finalize() error {
	// 从零重建，保证重复调用也不产生重复条目
	for _, node := range b.g.Nodes {
		if node.Type != NodeTypeTable {
			continue
		}
		node.Properties["reference_to"] = []string{}
		node.Properties["referenced_by"] = []string{}
		node.Properties["foreign_key"] = []string{}
	}

	for _, edge := range b.g.Edges {
		if edge.Type != EdgeTypeForeignKey {
			continue
		}
		path := edge.ReferencePath()
		fromTable := b.g.Nodes[edge.From]
		toTable := b.g.Nodes[edge.To]
		if fromTable == nil || toTable == nil {
			return fmt.Errorf("%w: edge %s", ErrUnknownTable, edge.ID)
		}

		fromTable.Properties["reference_to"] = append(fromTable.Properties["reference_to"].([]string), path)
		toTable.Properties["referenced_by"] = append(toTable.Properties["referenced_by"].([]string), path)

		fromColumn, _ := edge.Properties["from_column"].(string)
		fk := fromTable.Properties["foreign_key"].([]string)
		if !containsString(fk, fromColumn) {
			fromTable.Properties["foreign_key"] = append(fk, fromColumn)
		}

		colNode := b.g.Nodes[ColumnID(edge.From, fromColumn)]
		if colNode == nil {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, edge.From, fromColumn)
		}
		colNode.Properties["is_foreign_key"] = true

		b.upgradeRelation(edge.From, colNode)
	}
	return nil
}

// upgradeRelation 升级列的 HAS_COLUMN 关系类型
func (b *Builder) upgradeRelation(table string, colNode *Node) {
	for _, e := range b.g.hasColumn[table] {
		if e.To != colNode.ID {
			continue
		}
		if colNode.Bool("is_primary_key") {
			e.Properties["relation_type"] = RelationPrimaryAndForeignKey
		} else {
			e.Properties["relation_type"] = RelationForeignKey
		}
		return
	}
}

// Graph 返回构建中的图
func (b *Builder) Graph() *SchemaGraph {
	return b.g
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

package graph

import (
	"errors"
	"testing"
)

// buildSampleGraph 两表一外键的最小图
func buildSampleGraph(t *testing.T) *Builder {
	t.Helper()
	b := NewBuilder()

	if err := b.AddTable("users", 3, []string{"id", "name"}, []string{"id"}); err != nil {
		t.Fatalf("add users: %v", err)
	}
	if err := b.AddTable("orders", 2, []string{"uid", "ord"}, []string{"uid", "ord"}); err != nil {
		t.Fatalf("add orders: %v", err)
	}

	cols := []struct {
		table string
		attrs ColumnAttrs
	}{
		{"users", ColumnAttrs{Name: "id", DataType: "integer", IsPrimaryKey: true}},
		{"users", ColumnAttrs{Name: "name", DataType: "TEXT", IsNullable: false}},
		{"orders", ColumnAttrs{Name: "uid", DataType: "INTEGER", IsPrimaryKey: true}},
		{"orders", ColumnAttrs{Name: "ord", DataType: "INTEGER", IsPrimaryKey: true}},
	}
	for _, c := range cols {
		if err := b.AddColumn(c.table, c.attrs); err != nil {
			t.Fatalf("add column %s.%s: %v", c.table, c.attrs.Name, err)
		}
	}

	if err := b.AddForeignKey("orders", "uid", "users", "id"); err != nil {
		t.Fatalf("add fk: %v", err)
	}
	if err := b.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return b
}

func TestAddTableDuplicate(t *testing.T) {
	b := NewBuilder()
	if err := b.AddTable("t", 0, nil, nil); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := b.AddTable("t", 0, nil, nil)
	if !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("expected ErrDuplicateNode, got %v", err)
	}
}

func TestAddColumnUnknownTable(t *testing.T) {
	b := NewBuilder()
	err := b.AddColumn("nope", ColumnAttrs{Name: "c", DataType: "TEXT"})
	if !errors.Is(err, ErrUnknownTable) {
		t.Errorf("expected ErrUnknownTable, got %v", err)
	}
}

func TestAddForeignKeyUnknownEndpoints(t *testing.T) {
	b := NewBuilder()
	b.AddTable("a", 0, []string{"x"}, nil)
	b.AddColumn("a", ColumnAttrs{Name: "x", DataType: "INTEGER"})

	if err := b.AddForeignKey("a", "x", "missing", "y"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("expected ErrUnknownTable, got %v", err)
	}

	b.AddTable("b", 0, []string{"y"}, nil)
	if err := b.AddForeignKey("a", "x", "b", "y"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestColumnNodeShape(t *testing.T) {
	b := buildSampleGraph(t)
	g := b.Graph()

	node := g.GetNode("users.name")
	if node == nil {
		t.Fatal("users.name missing")
	}
	if node.BelongsTo() != "users" {
		t.Errorf("belongs_to = %q", node.BelongsTo())
	}
	if node.Properties["data_type"] != "TEXT" {
		t.Errorf("data_type = %v, expected uppercased TEXT", node.Properties["data_type"])
	}

	// 小写声明类型也要转成大写
	id := g.GetNode("users.id")
	if id.Properties["data_type"] != "INTEGER" {
		t.Errorf("data_type = %v", id.Properties["data_type"])
	}
}

// P1：每个列节点恰有一条 HAS_COLUMN 入边，源表与 belongs_to 一致
func TestInvariantHasColumn(t *testing.T) {
	g := buildSampleGraph(t).Graph()

	incoming := make(map[string]int)
	for _, e := range g.Edges {
		if e.Type != EdgeTypeHasColumn {
			continue
		}
		incoming[e.To]++
		col := g.GetNode(e.To)
		if col == nil {
			t.Fatalf("HAS_COLUMN target %s missing", e.To)
		}
		if col.BelongsTo() != e.From {
			t.Errorf("%s: belongs_to %q != source %q", e.To, col.BelongsTo(), e.From)
		}
	}
	for _, node := range g.Nodes {
		if node.Type == NodeTypeColumn && incoming[node.ID] != 1 {
			t.Errorf("column %s has %d HAS_COLUMN edges", node.ID, incoming[node.ID])
		}
	}
}

// P3：column_count 与 HAS_COLUMN 边数、columns 长度一致
func TestInvariantColumnCount(t *testing.T) {
	g := buildSampleGraph(t).Graph()

	for _, node := range g.Nodes {
		if node.Type != NodeTypeTable {
			continue
		}
		count := node.Properties["column_count"].(int)
		edges := len(g.HasColumnEdges(node.ID))
		columns := node.StringSlice("columns")
		if count != edges || count != len(columns) {
			t.Errorf("%s: column_count=%d edges=%d columns=%d", node.ID, count, edges, len(columns))
		}
	}
}

// P4/P5：外键回填后的关系类型与引用路径
func TestFinalize(t *testing.T) {
	g := buildSampleGraph(t).Graph()

	uid := g.GetNode("orders.uid")
	if !uid.Bool("is_foreign_key") {
		t.Error("orders.uid should be marked foreign key")
	}

	// uid 既是主键又是外键
	var relation string
	for _, e := range g.HasColumnEdges("orders") {
		if e.To == "orders.uid" {
			relation = e.RelationType()
		}
	}
	if relation != RelationPrimaryAndForeignKey {
		t.Errorf("orders.uid relation_type = %q", relation)
	}

	orders := g.GetNode("orders")
	users := g.GetNode("users")
	path := "orders.uid=users.id"

	refTo := orders.Properties["reference_to"].([]string)
	if len(refTo) != 1 || refTo[0] != path {
		t.Errorf("orders.reference_to = %v", refTo)
	}
	refBy := users.Properties["referenced_by"].([]string)
	if len(refBy) != 1 || refBy[0] != path {
		t.Errorf("users.referenced_by = %v", refBy)
	}
	fk := orders.StringSlice("foreign_key")
	if len(fk) != 1 || fk[0] != "uid" {
		t.Errorf("orders.foreign_key = %v", fk)
	}
}

// 重复声明外键：边不重复，Finalize 重跑不产生重复条目
func TestForeignKeyIdempotent(t *testing.T) {
	b := buildSampleGraph(t)
	g := b.Graph()

	if err := b.AddForeignKey("orders", "uid", "users", "id"); err != nil {
		t.Fatalf("duplicate fk should be silent: %v", err)
	}
	if len(g.ForeignKeyEdges()) != 1 {
		t.Fatalf("expected 1 FK edge, got %d", len(g.ForeignKeyEdges()))
	}

	if err := b.Finalize(); err != nil {
		t.Fatalf("refinalize: %v", err)
	}
	refTo := g.GetNode("orders").Properties["reference_to"].([]string)
	if len(refTo) != 1 {
		t.Errorf("reference_to duplicated after refinalize: %v", refTo)
	}
}

// 同一对表的平行外键靠 fk_hash 区分
func TestParallelForeignKeys(t *testing.T) {
	b := NewBuilder()
	b.AddTable("a", 0, []string{"x", "y"}, nil)
	b.AddTable("b", 0, []string{"p", "q"}, []string{"p"})
	b.AddColumn("a", ColumnAttrs{Name: "x", DataType: "INTEGER"})
	b.AddColumn("a", ColumnAttrs{Name: "y", DataType: "INTEGER"})
	b.AddColumn("b", ColumnAttrs{Name: "p", DataType: "INTEGER", IsPrimaryKey: true})
	b.AddColumn("b", ColumnAttrs{Name: "q", DataType: "INTEGER"})

	if err := b.AddForeignKey("a", "x", "b", "p"); err != nil {
		t.Fatal(err)
	}
	if err := b.AddForeignKey("a", "y", "b", "q"); err != nil {
		t.Fatal(err)
	}
	if err := b.Finalize(); err != nil {
		t.Fatal(err)
	}

	edges := b.Graph().ForeignKeyEdges()
	if len(edges) != 2 {
		t.Fatalf("expected 2 parallel edges, got %d", len(edges))
	}
	if edges[0].Properties["fk_hash"] == edges[1].Properties["fk_hash"] {
		t.Error("parallel edges must have distinct fk_hash")
	}
}

// P6：fk_hash 是四元组的确定函数
func TestFKHashStable(t *testing.T) {
	h1 := FKHash("orders", "uid", "users", "id")
	h2 := FKHash("orders", "uid", "users", "id")
	if h1 != h2 {
		t.Error("fk_hash not stable")
	}
	if h1 == FKHash("orders", "uid", "users", "name") {
		t.Error("different tuples must hash differently")
	}
}

func TestPrimaryKeyShape(t *testing.T) {
	g := buildSampleGraph(t).Graph()

	// 单列主键存字符串
	if pk := g.GetNode("users").Properties["primary_key"]; pk != "id" {
		t.Errorf("users primary_key = %v", pk)
	}
	// 复合主键存有序列表
	pk, ok := g.GetNode("orders").Properties["primary_key"].([]string)
	if !ok || len(pk) != 2 || pk[0] != "uid" || pk[1] != "ord" {
		t.Errorf("orders primary_key = %v", g.GetNode("orders").Properties["primary_key"])
	}
}

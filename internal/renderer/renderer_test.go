package renderer

import (
	"strings"
	"testing"

	"schema-graph/internal/graph"
	"schema-graph/internal/profiler"
)

// buildGraph 用户/订单样例图
func buildGraph(t *testing.T) *graph.SchemaGraph {
	t.Helper()
	b := graph.NewBuilder()

	if err := b.AddTable("users", 3, []string{"id", "name"}, []string{"id"}); err != nil {
		t.Fatal(err)
	}
	if err := b.AddTable("orders", 2, []string{"uid", "ord"}, []string{"uid", "ord"}); err != nil {
		t.Fatal(err)
	}

	p := profiler.New(profiler.DefaultConfig())
	idStats := p.Profile(profiler.Input{
		ColumnName: "id", DeclaredType: "INTEGER", IsPrimaryKey: true,
		Values: []interface{}{int64(1), int64(2), int64(3)},
	})
	nameStats := p.Profile(profiler.Input{
		ColumnName: "name", DeclaredType: "TEXT",
		Values: []interface{}{"alice", "bob", "alice"},
	})

	b.AddColumn("users", graph.ColumnAttrs{
		Name: "id", DataType: "INTEGER", IsPrimaryKey: true, Stats: idStats.Flatten(),
	})
	b.AddColumn("users", graph.ColumnAttrs{
		Name: "name", DataType: "TEXT", IsNullable: true, Stats: nameStats.Flatten(),
		ColumnDescription: "用户姓名",
	})
	b.AddColumn("orders", graph.ColumnAttrs{Name: "uid", DataType: "INTEGER", IsPrimaryKey: true})
	b.AddColumn("orders", graph.ColumnAttrs{Name: "ord", DataType: "INTEGER", IsPrimaryKey: true})

	if err := b.AddForeignKey("orders", "uid", "users", "id"); err != nil {
		t.Fatal(err)
	}
	if err := b.Finalize(); err != nil {
		t.Fatal(err)
	}
	return b.Graph()
}

func TestMarkdownRender(t *testing.T) {
	md := NewMarkdownRenderer().Render(buildGraph(t))

	for _, want := range []string{
		"### users", "### orders",
		"| name | TEXT |",
		"用户姓名",
		"`orders.uid=users.id`",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	// 渲染稳定
	if md != NewMarkdownRenderer().Render(buildGraph(t)) {
		t.Error("markdown output not deterministic")
	}
}

func TestMermaidRender(t *testing.T) {
	mmd := NewMermaidRenderer().Render(buildGraph(t))

	for _, want := range []string{
		"erDiagram",
		"users {",
		"orders {",
		"INTEGER id PK",
		"INTEGER uid PK FK",
		`users ||--o{ orders : "orders.uid=users.id"`,
	} {
		if !strings.Contains(mmd, want) {
			t.Errorf("mermaid missing %q", want)
		}
	}
}

func TestSchemaTextFull(t *testing.T) {
	gen := NewSchemaTextGenerator(buildGraph(t))

	text := gen.GenerateCombinedDescription("users", DetailFull, nil)

	for _, want := range []string{
		"# Table: users",
		"Columns: id, name",
		"Row Count: 3",
		"Reference Path: [orders.uid=users.id]",
		"(id:INTEGER,Primary Key",
		"(name:TEXT,用户姓名",
		"TextCategories: [alice bob]",
		"Not Nullable",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("schema text missing %q in:\n%s", want, text)
		}
	}
	if !strings.HasSuffix(text, "\n]") {
		t.Error("combined description must close the bracket")
	}
}

func TestSchemaTextLevels(t *testing.T) {
	gen := NewSchemaTextGenerator(buildGraph(t))

	minimal := gen.GenerateCombinedDescription("users", DetailMinimal, nil)
	if strings.Contains(minimal, "Row Count") {
		t.Error("minimal level must not include row count")
	}
	if !strings.Contains(minimal, "(id:INTEGER)") {
		t.Errorf("minimal column form wrong:\n%s", minimal)
	}

	brief := gen.GenerateTableDescription("orders", DetailBrief, nil)
	if !strings.Contains(brief, "Primary Key: uid, ord") {
		t.Errorf("brief missing composite primary key:\n%s", brief)
	}

	unknown := gen.GenerateTableDescription("nope", DetailFull, nil)
	if !strings.Contains(unknown, "No information available") {
		t.Errorf("unknown table text: %s", unknown)
	}
}

func TestSchemaTextSelectedTables(t *testing.T) {
	gen := NewSchemaTextGenerator(buildGraph(t))

	text := gen.GenerateTableDescription("users", DetailFull, []string{"users", "orders"})
	if !strings.Contains(text, "orders.uid=users.id") {
		t.Errorf("selected tables should surface the connecting path:\n%s", text)
	}
}

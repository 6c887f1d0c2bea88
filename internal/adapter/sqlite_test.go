package adapter

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// createTestDB 建一个临时 SQLite 库并执行建表语句
func createTestDB(t *testing.T, statements ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return path
}

func TestNewSQLiteAdapterMissingFile(t *testing.T) {
	_, err := NewSQLiteAdapter(filepath.Join(t.TempDir(), "no_such.sqlite"), time.Second)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestListTables(t *testing.T) {
	path := createTestDB(t,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY AUTOINCREMENT, uid INTEGER)`,
	)
	a, err := NewSQLiteAdapter(path, time.Second)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	tables, err := a.ListTables()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// AUTOINCREMENT 会生成 sqlite_sequence，必须被过滤
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %v", tables)
	}
	if tables[0] != "users" || tables[1] != "orders" {
		t.Errorf("unexpected catalog order: %v", tables)
	}
}

func TestDescribeTable(t *testing.T) {
	path := createTestDB(t,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, bio TEXT DEFAULT 'n/a')`,
		`CREATE TABLE orders (
			uid INTEGER,
			ord INTEGER,
			note TEXT,
			PRIMARY KEY (uid, ord),
			FOREIGN KEY (uid) REFERENCES users(id)
		)`,
	)
	a, err := NewSQLiteAdapter(path, time.Second)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	users, err := a.DescribeTable("users")
	if err != nil {
		t.Fatalf("describe users: %v", err)
	}
	if len(users.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(users.Columns))
	}
	if users.Columns[1].Name != "name" || !users.Columns[1].NotNull {
		t.Errorf("name column: %+v", users.Columns[1])
	}
	if users.Columns[1].Nullable() {
		t.Error("NOT NULL column reported nullable")
	}
	if !users.Columns[2].DefaultValue.Valid {
		t.Error("bio default value missing")
	}
	if len(users.PrimaryKey) != 1 || users.PrimaryKey[0] != "id" {
		t.Errorf("users primary key: %v", users.PrimaryKey)
	}

	orders, err := a.DescribeTable("orders")
	if err != nil {
		t.Fatalf("describe orders: %v", err)
	}
	// 复合主键按声明顺序
	if len(orders.PrimaryKey) != 2 || orders.PrimaryKey[0] != "uid" || orders.PrimaryKey[1] != "ord" {
		t.Errorf("composite primary key order: %v", orders.PrimaryKey)
	}
	if len(orders.ForeignKeys) != 1 {
		t.Fatalf("expected 1 foreign key, got %d", len(orders.ForeignKeys))
	}
	fk := orders.ForeignKeys[0]
	if fk.FromColumn != "uid" || fk.ToTable != "users" || fk.ToColumn != "id" {
		t.Errorf("foreign key: %+v", fk)
	}
}

func TestDescribeTableOmittedFKTarget(t *testing.T) {
	path := createTestDB(t,
		`CREATE TABLE parent (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE child (pid INTEGER REFERENCES parent)`,
	)
	a, err := NewSQLiteAdapter(path, time.Second)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	child, err := a.DescribeTable("child")
	if err != nil {
		t.Fatalf("describe child: %v", err)
	}
	if len(child.ForeignKeys) != 1 {
		t.Fatalf("expected 1 foreign key, got %d", len(child.ForeignKeys))
	}
	if child.ForeignKeys[0].ToColumn != "" {
		t.Errorf("omitted target column should be empty, got %q", child.ForeignKeys[0].ToColumn)
	}
}

func TestRowCountAndSampleValues(t *testing.T) {
	path := createTestDB(t,
		`CREATE TABLE t (v INTEGER)`,
		`INSERT INTO t VALUES (1), (2), (3), (NULL), (5)`,
	)
	a, err := NewSQLiteAdapter(path, time.Second)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	count, err := a.RowCount("t")
	if err != nil {
		t.Fatalf("row count: %v", err)
	}
	if count != 5 {
		t.Errorf("expected 5 rows, got %d", count)
	}

	values, err := a.SampleValues("t", "v", 3)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(values))
	}
	if values[0].(int64) != 1 {
		t.Errorf("first value: %v", values[0])
	}

	// limit 超过行数时返回全部，NULL 保留在结果中
	all, err := a.SampleValues("t", "v", 100)
	if err != nil {
		t.Fatalf("sample all: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 values, got %d", len(all))
	}
	if all[3] != nil {
		t.Errorf("expected NULL at index 3, got %v", all[3])
	}
}

func TestSampleValuesTextAsString(t *testing.T) {
	path := createTestDB(t,
		`CREATE TABLE t (s TEXT)`,
		`INSERT INTO t VALUES ('alice'), ('bob')`,
	)
	a, err := NewSQLiteAdapter(path, time.Second)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	values, err := a.SampleValues("t", "s", 10)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if s, ok := values[0].(string); !ok || s != "alice" {
		t.Errorf("expected string alice, got %T %v", values[0], values[0])
	}
}

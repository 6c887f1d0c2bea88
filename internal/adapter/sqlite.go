package adapter

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteAdapter SQLite 适配器（只读）
type SQLiteAdapter struct {
	db   *sql.DB
	path string
}

// NewSQLiteAdapter 以只读模式打开 SQLite 数据库文件
func NewSQLiteAdapter(path string, busyTimeout time.Duration) (*SQLiteAdapter, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, path)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(%d)",
		path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrSourceUnavailable, path, err)
	}

	// 整个流水线共用一条连接，保证采样的确定性
	db.SetMaxOpenConns(1)

	// 通过一次目录查询验证文件确实是 SQLite 数据库
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master`).Scan(&n); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s 不是有效的 SQLite 数据库: %v", ErrSourceUnavailable, path, err)
	}

	return &SQLiteAdapter{db: db, path: path}, nil
}

// ListTables 按目录顺序返回用户表
func (a *SQLiteAdapter) ListTables() ([]string, error) {
	rows, err := a.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, fmt.Errorf("%w: list tables: %v", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		// sqlite_sequence 等内部表不进入图
		if strings.HasPrefix(name, "sqlite_") {
			continue
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// DescribeTable 获取表结构
func (a *SQLiteAdapter) DescribeTable(table string) (*TableSchema, error) {
	schema := &TableSchema{Name: table}

	rows, err := a.db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %v", table, err)
	}
	defer rows.Close()

	// pk 序号 -> 列名，PRAGMA 的返回顺序是列定义顺序而非主键顺序
	pkOrder := make(map[int]string)
	for rows.Next() {
		var (
			cid     int
			col     Column
			notNull int
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.DeclaredType, &notNull, &col.DefaultValue, &pk); err != nil {
			return nil, err
		}
		col.NotNull = notNull != 0
		col.PKOrdinal = pk
		if pk > 0 {
			pkOrder[pk] = col.Name
		}
		schema.Columns = append(schema.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := 1; i <= len(pkOrder); i++ {
		schema.PrimaryKey = append(schema.PrimaryKey, pkOrder[i])
	}

	fks, err := a.foreignKeys(table)
	if err != nil {
		return nil, err
	}
	schema.ForeignKeys = fks

	return schema, nil
}

func (a *SQLiteAdapter) foreignKeys(table string) ([]ForeignKey, error) {
	rows, err := a.db.Query(fmt.Sprintf(`PRAGMA foreign_key_list(%s)`, quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("foreign keys of %s: %v", table, err)
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var (
			fk       ForeignKey
			to       sql.NullString // 目标列允许缺省
			onUpdate, onDelete, match string
		)
		if err := rows.Scan(&fk.ConstraintID, &fk.Seq, &fk.ToTable, &fk.FromColumn, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		if to.Valid {
			fk.ToColumn = to.String
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// RowCount 获取真实行数
func (a *SQLiteAdapter) RowCount(table string) (int64, error) {
	var count int64
	err := a.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdent(table))).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("row count of %s: %v", table, err)
	}
	return count, nil
}

// SampleValues 读取列的前 limit 行
// 超过 limit 的表不做随机采样，保证产物可复现。
func (a *SQLiteAdapter) SampleValues(table, column string, limit int) ([]interface{}, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s LIMIT %d`,
		quoteIdent(column), quoteIdent(table), limit)
	rows, err := a.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("sample %s.%s: %v", table, column, err)
	}
	defer rows.Close()

	var values []interface{}
	for rows.Next() {
		var v interface{}
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		// BLOB/TEXT 可能扫描为 []byte，统一转成 string 便于后续统计
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Close 关闭连接
func (a *SQLiteAdapter) Close() error {
	return a.db.Close()
}

// quoteIdent 标识符转义，表名列名可能包含空格或保留字
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

package graph

import "sort"

// Explorer 已完成图的只读探索器
// 供产物的下游读方使用：枚举、邻域查询、连通性判断。
type Explorer struct {
	g *SchemaGraph
}

// NewExplorer 创建探索器
func NewExplorer(g *SchemaGraph) *Explorer {
	return &Explorer{g: g}
}

// AllTables 全部表节点，按名称索引
func (e *Explorer) AllTables() map[string]*Node {
	tables := make(map[string]*Node)
	for _, node := range e.g.Nodes {
		if node.Type == NodeTypeTable {
			tables[node.Name] = node
		}
	}
	return tables
}

// AllColumns 全部列节点
func (e *Explorer) AllColumns() []*Node {
	var columns []*Node
	for _, id := range e.sortedNodeIDs() {
		if node := e.g.Nodes[id]; node.Type == NodeTypeColumn {
			columns = append(columns, node)
		}
	}
	return columns
}

// AllForeignKeys 全部 FOREIGN_KEY 边
func (e *Explorer) AllForeignKeys() []*Edge {
	return e.g.ForeignKeyEdges()
}

// ColumnsForTable 表的列节点，沿 HAS_COLUMN 邻接表取
func (e *Explorer) ColumnsForTable(table string) map[string]*Node {
	columns := make(map[string]*Node)
	for _, edge := range e.g.HasColumnEdges(table) {
		if node := e.g.GetNode(edge.To); node != nil && node.Type == NodeTypeColumn {
			columns[node.Name] = node
		}
	}
	return columns
}

// NeighborTables n 跳以内经 FOREIGN_KEY 可达的表（视作无向）
func (e *Explorer) NeighborTables(table string, nHop int) []string {
	if e.g.GetNode(table) == nil {
		return nil
	}

	visited := map[string]bool{table: true}
	currentLayer := []string{table}

	for hop := 0; hop < nHop; hop++ {
		var nextLayer []string
		for _, node := range currentLayer {
			for _, neighbor := range e.fkNeighbors(node) {
				if !visited[neighbor] {
					visited[neighbor] = true
					nextLayer = append(nextLayer, neighbor)
				}
			}
		}
		currentLayer = nextLayer
	}

	var neighbors []string
	for name := range visited {
		if name != table {
			neighbors = append(neighbors, name)
		}
	}
	sort.Strings(neighbors)
	return neighbors
}

// fkNeighbors 一跳 FK 邻居，出入两个方向
func (e *Explorer) fkNeighbors(table string) []string {
	var neighbors []string
	for _, edge := range e.g.ForeignKeysFrom(table) {
		if edge.To != table {
			neighbors = append(neighbors, edge.To)
		}
	}
	for _, edge := range e.g.ForeignKeysTo(table) {
		if edge.From != table {
			neighbors = append(neighbors, edge.From)
		}
	}
	return neighbors
}

// IsSubgraphConnected 选中表经 FK 诱导的子图是否连通
func (e *Explorer) IsSubgraphConnected(tables []string) bool {
	if len(tables) == 0 {
		return false
	}

	selected := make(map[string]bool, len(tables))
	for _, t := range tables {
		selected[t] = true
	}

	visited := make(map[string]bool)
	queue := []string{tables[0]}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		for _, neighbor := range e.fkNeighbors(current) {
			if selected[neighbor] && !visited[neighbor] {
				queue = append(queue, neighbor)
			}
		}
	}

	return len(visited) == len(tables)
}

// BFSSubgraph 从选中表出发的层序遍历
// 返回逐层的表名列表；起点不连通或含未知表时返回空。
func (e *Explorer) BFSSubgraph(tables []string) [][]string {
	all := e.AllTables()
	for _, t := range tables {
		if _, ok := all[t]; !ok {
			return nil
		}
	}
	if !e.IsSubgraphConnected(tables) {
		return nil
	}

	visited := make(map[string]bool, len(tables))
	for _, t := range tables {
		visited[t] = true
	}

	var (
		result [][]string
		queue  = append([]string(nil), tables...)
	)
	for len(queue) > 0 {
		levelSize := len(queue)
		level := make([]string, 0, levelSize)

		for i := 0; i < levelSize; i++ {
			current := queue[0]
			queue = queue[1:]
			level = append(level, current)

			for _, neighbor := range e.fkNeighbors(current) {
				if !visited[neighbor] {
					visited[neighbor] = true
					queue = append(queue, neighbor)
				}
			}
		}
		result = append(result, level)
	}
	return result
}

// ForeignKeysBetween 两表之间双向的引用路径
func (e *Explorer) ForeignKeysBetween(table1, table2 string) []string {
	var paths []string
	for _, edge := range e.g.ForeignKeysFrom(table1) {
		if edge.To == table2 {
			paths = append(paths, edge.ReferencePath())
		}
	}
	for _, edge := range e.g.ForeignKeysFrom(table2) {
		if edge.To == table1 {
			paths = append(paths, edge.ReferencePath())
		}
	}
	return paths
}

// sortedNodeIDs 节点 ID 的稳定遍历顺序
func (e *Explorer) sortedNodeIDs() []string {
	ids := make([]string, 0, len(e.g.Nodes))
	for id := range e.g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

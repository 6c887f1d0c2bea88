package graph

// SchemaGraph 数据库结构图
// 节点表按 ID 索引；邻接表按边类型分开，遍历 HAS_COLUMN 与 FOREIGN_KEY
// 时互不干扰。构建期单线程写入，完成后只读。
type SchemaGraph struct {
	Nodes map[string]*Node `json:"nodes"`
	Edges []*Edge          `json:"edges"`

	hasColumn map[string][]*Edge // 表 ID -> HAS_COLUMN 边
	fkFrom    map[string][]*Edge // 表 ID -> 出向 FOREIGN_KEY 边
	fkTo      map[string][]*Edge // 表 ID -> 入向 FOREIGN_KEY 边
	fkTuples  map[string]*Edge   // reference_path -> 边，用于幂等去重
}

// NewSchemaGraph 创建空图
func NewSchemaGraph() *SchemaGraph {
	return &SchemaGraph{
		Nodes:     make(map[string]*Node),
		hasColumn: make(map[string][]*Edge),
		fkFrom:    make(map[string][]*Edge),
		fkTo:      make(map[string][]*Edge),
		fkTuples:  make(map[string]*Edge),
	}
}

// GetNode 获取节点
func (g *SchemaGraph) GetNode(id string) *Node {
	return g.Nodes[id]
}

// NodeCount 节点数
func (g *SchemaGraph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount 边数
func (g *SchemaGraph) EdgeCount() int {
	return len(g.Edges)
}

// HasColumnEdges 表的 HAS_COLUMN 出边，按插入顺序
func (g *SchemaGraph) HasColumnEdges(table string) []*Edge {
	return g.hasColumn[table]
}

// ForeignKeyEdges 全部 FOREIGN_KEY 边，按插入顺序
func (g *SchemaGraph) ForeignKeyEdges() []*Edge {
	var edges []*Edge
	for _, e := range g.Edges {
		if e.Type == EdgeTypeForeignKey {
			edges = append(edges, e)
		}
	}
	return edges
}

// ForeignKeysFrom 表的出向 FOREIGN_KEY 边
func (g *SchemaGraph) ForeignKeysFrom(table string) []*Edge {
	return g.fkFrom[table]
}

// ForeignKeysTo 表的入向 FOREIGN_KEY 边
func (g *SchemaGraph) ForeignKeysTo(table string) []*Edge {
	return g.fkTo[table]
}

// addNode 写入节点，构建期由 Builder 调用
func (g *SchemaGraph) addNode(node *Node) {
	g.Nodes[node.ID] = node
}

// addEdge 写入边并维护按类型的邻接表
func (g *SchemaGraph) addEdge(edge *Edge) {
	g.Edges = append(g.Edges, edge)
	switch edge.Type {
	case EdgeTypeHasColumn:
		g.hasColumn[edge.From] = append(g.hasColumn[edge.From], edge)
	case EdgeTypeForeignKey:
		g.fkFrom[edge.From] = append(g.fkFrom[edge.From], edge)
		g.fkTo[edge.To] = append(g.fkTo[edge.To], edge)
		g.fkTuples[edge.ReferencePath()] = edge
	}
}

// reindex 反序列化后重建邻接表
func (g *SchemaGraph) reindex() {
	g.hasColumn = make(map[string][]*Edge)
	g.fkFrom = make(map[string][]*Edge)
	g.fkTo = make(map[string][]*Edge)
	g.fkTuples = make(map[string]*Edge)
	edges := g.Edges
	g.Edges = nil
	for _, e := range edges {
		g.addEdge(e)
	}
}

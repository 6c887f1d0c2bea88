package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Encode 序列化为 JSON 产物
// map 键按字典序输出，相同的图字节级一致。
func (g *SchemaGraph) Encode() ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// Decode 从 JSON 产物还原图并重建邻接表
func Decode(data []byte) (*SchemaGraph, error) {
	g := &SchemaGraph{}
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("decode artifact: %v", err)
	}
	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}
	g.reindex()
	return g, nil
}

// WriteArtifact 原子写出产物
// 先写临时文件再重命名，中断的运行不会留下半成品。
func WriteArtifact(g *SchemaGraph, path string) error {
	data, err := g.Encode()
	if err != nil {
		return fmt.Errorf("encode artifact: %v", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadArtifact 从文件加载产物
func LoadArtifact(path string) (*SchemaGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %v", path, err)
	}
	return Decode(data)
}

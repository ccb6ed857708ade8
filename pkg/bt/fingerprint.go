package bt

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint 节点结构（深度、类型、名称）的 xxhash64 摘要，运行状态不参与计算
func Fingerprint(n Node) uint64 {
	d := xxhash.New()
	Walk(n, func(node Node, depth int) bool {
		_, _ = d.WriteString(strconv.Itoa(depth))
		_, _ = d.WriteString("|")
		_, _ = d.WriteString(node.Type().String())
		_, _ = d.WriteString("|")
		// 名称带长度前缀，名称中的分隔符不会与结构混淆
		_, _ = d.WriteString(strconv.Itoa(len(node.Name())))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(node.Name())
		_, _ = d.WriteString("\n")
		return true
	})
	return d.Sum64()
}

// Fingerprint 树结构摘要
func (t *Tree) Fingerprint() uint64 {
	return Fingerprint(t.root)
}

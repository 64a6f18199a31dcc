/*
 * @module service/datasource/interface
 * @description 源文件格式适配器统一接口
 * @architecture 接口隔离原则 - 每种文件格式一个适配器，输出统一的中间行
 * @stateFlow 文件字节 -> 适配器解析 -> []Row -> 字段发现 -> 语料条目
 * @rules
 *   - 适配器只负责把文件切分为行，不做文本/类别判定
 *   - 单行格式错误在适配器内跳过，不中断整个文件
 * @dependencies context
 * @refs row.go, adapters.go, registry.go, discovery.go
 */

package datasource

import "context"

// Adapter 文件格式适配器
type Adapter interface {
	// Name 适配器名称
	Name() string

	// Extensions 适配器负责的文件扩展名（小写，含点号）
	Extensions() []string

	// Parse 将已解码的文件内容解析为中间行
	Parse(ctx context.Context, content string) ([]Row, error)
}

// AdapterCreator 适配器创建函数
type AdapterCreator func() Adapter

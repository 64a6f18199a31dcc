/*
 * @module service/datasource/registry
 * @description 格式适配器注册中心，按扩展名分派文件到适配器
 * @architecture 注册中心模式 - 统一管理所有格式适配器
 * @stateFlow 注册中心生命周期：初始化 -> 注册内置适配器 -> 按扩展名查找
 * @rules 扩展名不区分大小写，同一扩展名只能注册一个适配器
 * @dependencies sync, log/slog
 * @refs interface.go, adapters.go, parser.go
 */

package datasource

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Registry 格式适配器注册中心
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// 全局注册中心实例
var (
	globalRegistry *Registry
	registryOnce   sync.Once
)

// GetGlobalRegistry 获取全局适配器注册中心实例
func GetGlobalRegistry() *Registry {
	registryOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// NewRegistry 创建注册中心并注册内置适配器
func NewRegistry() *Registry {
	registry := &Registry{adapters: make(map[string]Adapter)}
	registry.registerBuiltinAdapters()
	return registry
}

// Register 注册适配器
func (r *Registry) Register(creator AdapterCreator) error {
	if creator == nil {
		return fmt.Errorf("适配器创建函数不能为空")
	}
	adapter := creator()
	if adapter == nil || len(adapter.Extensions()) == 0 {
		return fmt.Errorf("适配器未声明扩展名")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range adapter.Extensions() {
		ext = strings.ToLower(ext)
		if existing, ok := r.adapters[ext]; ok {
			return fmt.Errorf("扩展名 %s 已由适配器 %s 注册", ext, existing.Name())
		}
	}
	for _, ext := range adapter.Extensions() {
		r.adapters[strings.ToLower(ext)] = adapter
	}
	return nil
}

// AdapterFor 按扩展名查找适配器
func (r *Registry) AdapterFor(ext string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[strings.ToLower(ext)]
	return adapter, ok
}

// SupportedExtensions 获取支持的扩展名（已排序）
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.adapters))
	for ext := range r.adapters {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// registerBuiltinAdapters 注册内置适配器
func (r *Registry) registerBuiltinAdapters() {
	for _, creator := range []AdapterCreator{
		NewJSONLAdapter,
		NewJSONAdapter,
		NewCSVAdapter,
		NewTSVAdapter,
		NewTextAdapter,
	} {
		if err := r.Register(creator); err != nil {
			slog.Error("注册内置适配器失败", "error", err)
		}
	}
}

/*
 * @module service/monitoring/metrics_collector
 * @description 流水线指标收集器：缓存命中、译文生产方、阶段耗时、语料规模、一致性统计
 * @architecture 独立 prometheus 注册表，供 /metrics 端点与文本文件导出共用
 * @stateFlow 各阶段上报 -> 注册表 -> HTTP 抓取 / 文本文件
 * @rules
 *   - 不使用全局默认注册表，同一进程可创建多个收集器
 *   - 文本文件先写临时文件再改名
 * @dependencies github.com/prometheus/client_golang, github.com/prometheus/common/expfmt
 * @refs service/cache/memoizer.go, service/pipeline
 */

package monitoring

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"inkstone-service/service/dataset"
)

const namespace = "inkstone"

// 运行结果标签
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// Collector 指标收集器，实现 cache.Observer
type Collector struct {
	registry *prometheus.Registry

	cacheLookups    *prometheus.CounterVec
	producerOutputs *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	stageRows       *prometheus.GaugeVec
	corpusItems     *prometheus.GaugeVec
	agreement       *prometheus.GaugeVec
	runs            *prometheus.CounterVec
	lastRun         prometheus.Gauge
}

// NewCollector 创建收集器及其注册表
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by result (hit, miss)",
		}, []string{"result"}),
		producerOutputs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "produced_total",
			Help:      "Outputs produced on cache miss, by producer",
		}, []string{"producer"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"stage"}),
		stageRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_rows",
			Help:      "Rows emitted by the last run of each stage",
		}, []string{"stage"}),
		corpusItems: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "items",
			Help:      "Corpus size by partition (source_items, eval_set, pool, duplicates)",
		}, []string{"partition"}),
		agreement: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "metrics",
			Name:      "human_model_agreement",
			Help:      "Consensus vs model OV agreement (spearman, pvalue)",
		}, []string{"statistic"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by status",
		}, []string{"status"}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run",
		}),
	}
}

// Registry 返回收集器使用的注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 /metrics 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveCache 记录一次缓存查询
func (c *Collector) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveProducer 记录一次未命中后的生产
func (c *Collector) ObserveProducer(name string) {
	c.producerOutputs.WithLabelValues(name).Inc()
}

// ObserveStage 记录阶段耗时与输出行数
func (c *Collector) ObserveStage(stage string, rows int, elapsed time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	c.stageRows.WithLabelValues(stage).Set(float64(rows))
}

// ObserveCorpus 记录语料规模
func (c *Collector) ObserveCorpus(items, evalSet, pool, duplicates int) {
	c.corpusItems.WithLabelValues("source_items").Set(float64(items))
	c.corpusItems.WithLabelValues("eval_set").Set(float64(evalSet))
	c.corpusItems.WithLabelValues("pool").Set(float64(pool))
	c.corpusItems.WithLabelValues("duplicates").Set(float64(duplicates))
}

// ObserveAgreement 记录共识与模型评分的一致性
func (c *Collector) ObserveAgreement(spearman, pvalue float64) {
	c.agreement.WithLabelValues("spearman").Set(spearman)
	c.agreement.WithLabelValues("pvalue").Set(pvalue)
}

// ObserveRun 记录一次运行结束
func (c *Collector) ObserveRun(status string, at time.Time) {
	c.runs.WithLabelValues(status).Inc()
	c.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile 以文本格式导出全部指标
func (c *Collector) WriteTextfile(path string) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("采集指标失败: %w", err)
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return fmt.Errorf("编码指标失败: %w", err)
		}
	}
	if err := dataset.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("写入指标文件失败: %w", err)
	}
	return nil
}

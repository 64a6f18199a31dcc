/*
 * @module service/pipeline/manifest
 * @description 运行清单：每个阶段结束后向 reports/run_manifest.jsonl 追加一行
 * @architecture 追加写 JSONL
 * @rules
 *   - 只追加，不改写历史行
 *   - 配置了 frozen_at 时 created_at 固定为该时间
 * @dependencies runtime/debug
 * @refs pipeline.go, service/models/run_manifest.go
 */

package pipeline

import (
	"fmt"
	"path/filepath"
	"runtime"
	"runtime/debug"

	"inkstone-service/service/dataset"
	"inkstone-service/service/models"
)

// RunManifestFile 运行清单文件名
const RunManifestFile = "run_manifest.jsonl"

// WriteRunManifest 向报告目录下的运行清单追加一行
func WriteRunManifest(reportsDir string, manifest models.RunManifest) (string, error) {
	path := filepath.Join(reportsDir, RunManifestFile)
	if err := dataset.AppendJSONL(path, manifest); err != nil {
		return "", fmt.Errorf("写入运行清单失败: %w", err)
	}
	return path, nil
}

func (p *Pipeline) appendManifest(runID, stage string, outputs map[string]any) error {
	_, err := WriteRunManifest(p.cfg.Paths.ReportsDir, models.RunManifest{
		RunID:             runID,
		CreatedAt:         p.createdAt(),
		Stage:             stage,
		VCSRevision:       vcsRevision(),
		GoVersion:         runtime.Version(),
		Platform:          runtime.GOOS + "/" + runtime.GOARCH,
		Seed:              p.cfg.Seed(),
		NEval:             p.cfg.NEval(),
		ConfigFingerprint: p.fingerprint,
		ConfigPaths:       p.cfg.PathMap(),
		Outputs:           outputs,
	})
	return err
}

// vcsRevision 构建信息中的版本号，取不到时为 unknown
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return "unknown"
}

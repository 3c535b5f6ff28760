package domain

import (
	"encoding/json"
	"time"
)

const (
	CatalogFormArray  = "array"
	CatalogFormObject = "object"
)

// BuildReport 描述一次构建的结果（控制台摘要与测试断言都基于它）。
type BuildReport struct {
	CatalogPath string `json:"catalog_path"`
	CatalogForm string `json:"catalog_form"`
	Movies      int    `json:"movies"`

	// LoaderMatches 是脚本中 loader 锚点文本出现的次数；0 表示未改写（脚本原样嵌入）。
	LoaderMatches   int  `json:"loader_matches"`
	LoaderRewritten bool `json:"loader_rewritten"`

	OutputPath   string `json:"output_path"`
	FallbackUsed bool   `json:"fallback_used"`
	PrimaryError string `json:"primary_error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Finalize 统一时间为 UTC，并由 LoaderMatches 推导 LoaderRewritten。
func (r *BuildReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	r.LoaderRewritten = r.LoaderMatches > 0
}

// MarshalJSON 集中约束输出的稳定性；当前只是透传 encoding/json 的默认行为。
func (r BuildReport) MarshalJSON() ([]byte, error) {
	type Alias BuildReport
	return json.Marshal(Alias(r))
}

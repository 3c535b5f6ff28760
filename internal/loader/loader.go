// Package loader 把页面脚本里基于网络请求的数据加载函数替换为读取内嵌全局变量的版本。
package loader

import (
	_ "embed"
	"errors"
	"strings"

	"github.com/John-Robertt/standalone/internal/domain"
)

//go:embed fetch_loader.js
var fetchLoaderFile string

//go:embed embedded_loader.js
var embeddedLoaderFile string

// 文件末尾的换行不属于锚点文本（锚点以 "}" 结束）。
var (
	FetchLoader    = strings.TrimSuffix(fetchLoaderFile, "\n")
	EmbeddedLoader = strings.TrimSuffix(embeddedLoaderFile, "\n")
)

// FetchCall 是被替换掉的网络请求调用。
const FetchCall = "fetch('movies.json')"

// ErrAnchorMissing 表示脚本中找不到 loader 锚点（脚本被改过，精确匹配失效）。
var ErrAnchorMissing = errors.New("script 中未找到 loader 锚点文本（精确匹配，区分空白）")

// Result 描述一次改写。
type Result struct {
	Script  string
	Matches int
}

// Rewrite 精确替换 loader 块（全部出现处）。
//
// - 命中 0 次且 strict=false：原样返回（Matches=0），由调用方决定是否告警
// - 命中 0 次且 strict=true：返回 loader_anchor_missing
func Rewrite(script string, strict bool) (Result, error) {
	n := strings.Count(script, FetchLoader)
	if n == 0 {
		if strict {
			return Result{Script: script}, &domain.Error{Code: domain.ErrCodeLoaderAnchorMissing, Err: ErrAnchorMissing}
		}
		return Result{Script: script}, nil
	}
	return Result{
		Script:  strings.ReplaceAll(script, FetchLoader, EmbeddedLoader),
		Matches: n,
	}, nil
}

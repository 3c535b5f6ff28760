package build

import (
	"github.com/John-Robertt/standalone/internal/config"
	"github.com/John-Robertt/standalone/internal/domain"
)

// Observer 把构建过程中的进度/诊断从核心流程中解耦出来。
//
// 约束：build 包只发事件，不做任何输出；展示方式由 CLI 决定。
type Observer interface {
	// OnStart 在读取任何输入之前调用。
	OnStart(eff config.EffectiveConfig)
	// OnCatalog 在目录解析完成后调用；sample 仅在目录非空时有效。
	OnCatalog(path string, movies int, sample domain.MovieSample, hasSample bool)
	// OnWarning 用于不影响构建结果的降级（loader 未命中、主输出位置写入失败等）。
	OnWarning(msg string)
	// OnDone 在输出文件写入成功后调用。
	OnDone(rr domain.BuildReport)
}

type nopObserver struct{}

func (nopObserver) OnStart(config.EffectiveConfig) {}
func (nopObserver) OnCatalog(string, int, domain.MovieSample, bool) {}
func (nopObserver) OnWarning(string) {}
func (nopObserver) OnDone(domain.BuildReport) {}

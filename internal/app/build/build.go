package build

import (
	"context"
	"fmt"
	"time"

	"github.com/John-Robertt/standalone/internal/catalog"
	"github.com/John-Robertt/standalone/internal/config"
	"github.com/John-Robertt/standalone/internal/domain"
	"github.com/John-Robertt/standalone/internal/infra/fsx"
	"github.com/John-Robertt/standalone/internal/loader"
	"github.com/John-Robertt/standalone/internal/page"
	"github.com/John-Robertt/standalone/internal/templates"
)

// 通过可替换的函数指针，让测试能稳定模拟首选位置写入失败。
var writeFile = fsx.WriteFile

// Execute 执行一次构建：读取目录与模板 -> 改写 loader -> 渲染 -> 自检 -> 写出。
//
// 错误策略：
// - 输入缺失/非法、strict 下 loader 未命中、渲染自检失败：直接返回，不写任何文件
// - 首选输出位置写入失败：回退一次；回退也失败才返回 output_write_failed
func Execute(ctx context.Context, eff config.EffectiveConfig) (domain.BuildReport, error) {
	return ExecuteWithObserver(ctx, eff, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/诊断。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, obs Observer) (domain.BuildReport, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	rr := domain.BuildReport{
		CatalogPath: eff.CatalogPath,
		StartedAt:   time.Now().UTC(),
	}
	obs.OnStart(eff)

	cat, err := catalog.Load(eff.CatalogPath)
	if err != nil {
		return rr, err
	}
	rr.CatalogForm = cat.Form
	rr.Movies = cat.Len()
	sample, hasSample := cat.Sample()
	obs.OnCatalog(eff.CatalogPath, cat.Len(), sample, hasSample)
	for _, w := range cat.Warnings {
		obs.OnWarning(w)
	}

	set, err := templates.Load(templates.Paths{
		Index:  eff.IndexPath,
		Styles: eff.StylesPath,
		Script: eff.ScriptPath,
	})
	if err != nil {
		return rr, err
	}
	if err := ctx.Err(); err != nil {
		return rr, err
	}

	res, err := loader.Rewrite(set.Script, eff.StrictLoader)
	if err != nil {
		return rr, &domain.Error{Code: domain.ErrCodeLoaderAnchorMissing, Path: eff.ScriptPath, Err: loader.ErrAnchorMissing}
	}
	rr.LoaderMatches = res.Matches
	if res.Matches == 0 {
		obs.OnWarning(fmt.Sprintf("%s 中未找到 loader 锚点，脚本原样嵌入（页面仍会请求 movies.json）", eff.ScriptPath))
	}

	doc, err := renderDocument(cat, set.CSS, res.Script)
	if err != nil {
		return rr, err
	}
	if err := ctx.Err(); err != nil {
		return rr, err
	}

	path, primaryErr, err := writeOutput(eff, doc)
	if err != nil {
		return rr, err
	}
	rr.OutputPath = path
	if primaryErr != nil {
		rr.FallbackUsed = true
		rr.PrimaryError = primaryErr.Error()
		obs.OnWarning(fmt.Sprintf("写入 %s 失败：%v；已改写到 %s", eff.OutputPath, primaryErr, path))
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	obs.OnDone(rr)
	return rr, nil
}

// renderDocument 渲染页面并把结果读回核对（数据条数必须与目录一致）。
func renderDocument(cat catalog.Catalog, css, script string) ([]byte, error) {
	lit, err := catalog.Literal(cat.Movies)
	if err != nil {
		return nil, &domain.Error{Code: domain.ErrCodeRenderInvalid, Path: cat.Path, Err: err}
	}
	doc, err := page.Render(page.Data{CSS: css, MoviesJSON: string(lit), Script: script})
	if err != nil {
		return nil, &domain.Error{Code: domain.ErrCodeRenderInvalid, Err: err}
	}

	ins, err := page.Inspect(doc)
	if err != nil {
		return nil, &domain.Error{Code: domain.ErrCodeRenderInvalid, Err: err}
	}
	if ins.Scripts != page.InlineScripts {
		return nil, &domain.Error{Code: domain.ErrCodeRenderInvalid, Err: fmt.Errorf("内联脚本数量不一致：期望 %d，实际 %d（数据或样式吞掉了 script 边界）", page.InlineScripts, ins.Scripts)}
	}
	if len(ins.Movies) != cat.Len() {
		return nil, &domain.Error{Code: domain.ErrCodeRenderInvalid, Err: fmt.Errorf("内嵌数据条数不一致：期望 %d，实际 %d", cat.Len(), len(ins.Movies))}
	}
	return doc, nil
}

// writeOutput 先写首选位置；失败时回退一次。
//
// 返回实际写入的路径；primaryErr 非空表示使用了回退位置。
func writeOutput(eff config.EffectiveConfig, doc []byte) (path string, primaryErr error, err error) {
	primaryErr = writeFile(eff.OutputPath, doc)
	if primaryErr == nil {
		return eff.OutputPath, nil, nil
	}
	if eff.FallbackPath == "" {
		return "", nil, &domain.Error{Code: domain.ErrCodeOutputWriteFailed, Path: eff.OutputPath, Err: primaryErr}
	}
	if err := writeFile(eff.FallbackPath, doc); err != nil {
		return "", nil, &domain.Error{
			Code: domain.ErrCodeOutputWriteFailed,
			Path: eff.FallbackPath,
			Err:  fmt.Errorf("首选位置 %q：%v；回退位置：%w", eff.OutputPath, primaryErr, err),
		}
	}
	return eff.FallbackPath, primaryErr, nil
}

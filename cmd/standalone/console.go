package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/standalone/internal/app/build"
	"github.com/John-Robertt/standalone/internal/config"
	"github.com/John-Robertt/standalone/internal/domain"
)

var _ build.Observer = (*consoleUI)(nil)

// consoleUI 把构建事件写成几行人类可读输出：过程与结果走 out，告警走 errw。
type consoleUI struct {
	out  io.Writer
	errw io.Writer

	mu        sync.Mutex
	startedAt time.Time
}

func newConsoleUI(out, errw io.Writer) *consoleUI {
	return &consoleUI{out: out, errw: errw}
}

func (c *consoleUI) OnStart(eff config.EffectiveConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startedAt = time.Now()
	if eff.ConfigPath != "" {
		fmt.Fprintf(c.out, "配置：%s\n", eff.ConfigPath)
	}
	if eff.StrictLoader {
		fmt.Fprintln(c.out, "loader 改写：strict（锚点缺失即失败）")
	}
	fmt.Fprintf(c.out, "读取 %s...\n", filepath.Base(eff.CatalogPath))
}

func (c *consoleUI) OnCatalog(_ string, movies int, sample domain.MovieSample, hasSample bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "共 %d 部影片\n", movies)
	if hasSample {
		fmt.Fprintf(c.out, "首条记录：%s\n", truncate(sample.String(), 200))
	}
}

func (c *consoleUI) OnWarning(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.errw, "警告：%s\n", msg)
}

func (c *consoleUI) OnDone(rr domain.BuildReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "✅ 已生成 %s，内嵌 %d 部影片（%s）\n", rr.OutputPath, rr.Movies, formatShortDuration(time.Since(c.startedAt)))
	fmt.Fprintf(c.out, "   直接用浏览器打开 %s 即可，无需服务器。\n", rr.OutputPath)
}

// truncate 按 rune 截断，避免把多字节字符切成非法 UTF-8。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

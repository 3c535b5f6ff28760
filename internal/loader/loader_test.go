package loader

import (
	"strings"
	"testing"

	"github.com/John-Robertt/standalone/internal/domain"
	"github.com/John-Robertt/standalone/internal/page"
)

func TestAnchors_Shape(t *testing.T) {
	if !strings.HasPrefix(FetchLoader, "// Load movies from JSON file\nasync function loadMovies() {") {
		t.Fatalf("fetch loader 开头不符合预期：%q", FetchLoader[:60])
	}
	if !strings.HasSuffix(FetchLoader, "\n}") || !strings.HasSuffix(EmbeddedLoader, "\n}") {
		t.Fatalf("锚点必须以 } 结束（不含尾随换行）")
	}
	if !strings.Contains(FetchLoader, FetchCall) {
		t.Fatalf("fetch loader 应包含 %s", FetchCall)
	}
	if strings.Contains(EmbeddedLoader, "fetch(") {
		t.Fatalf("embedded loader 不应包含网络请求")
	}
	if !strings.Contains(EmbeddedLoader, page.DataGlobal+" ||") {
		t.Fatalf("embedded loader 应读取页面内嵌的 %s", page.DataGlobal)
	}
	// 锚点区分空白：块内包含只有缩进的空行。
	if !strings.Contains(FetchLoader, "\n        \n") {
		t.Fatalf("fetch loader 应保留只含缩进的空行")
	}
}

func TestRewrite_Replaced(t *testing.T) {
	script := "let moviesData = [];\n\n" + FetchLoader + "\n\nloadMovies();\n"

	res, err := Rewrite(script, false)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if res.Matches != 1 {
		t.Fatalf("期望 1 次命中，实际 %d", res.Matches)
	}
	if strings.Contains(res.Script, FetchCall) {
		t.Fatalf("改写后不应包含 %s", FetchCall)
	}
	want := "let moviesData = [];\n\n" + EmbeddedLoader + "\n\nloadMovies();\n"
	if res.Script != want {
		t.Fatalf("改写结果不一致")
	}
}

func TestRewrite_AllOccurrences(t *testing.T) {
	script := FetchLoader + "\n" + FetchLoader
	res, err := Rewrite(script, true)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if res.Matches != 2 || strings.Contains(res.Script, FetchCall) {
		t.Fatalf("应替换全部出现处：matches=%d", res.Matches)
	}
}

func TestRewrite_NoMatch_ByteIdentical(t *testing.T) {
	// 多一个空格即视为不匹配。
	script := strings.Replace(FetchLoader, "async function", "async  function", 1)

	res, err := Rewrite(script, false)
	if err != nil {
		t.Fatalf("非 strict 模式不应报错：%v", err)
	}
	if res.Matches != 0 {
		t.Fatalf("期望 0 次命中，实际 %d", res.Matches)
	}
	if res.Script != script {
		t.Fatalf("未命中时脚本必须逐字节不变")
	}
}

func TestRewrite_NoMatch_Strict(t *testing.T) {
	_, err := Rewrite("loadMovies();\n", true)
	if domain.Code(err) != domain.ErrCodeLoaderAnchorMissing {
		t.Fatalf("期望 %q，实际 err=%v", domain.ErrCodeLoaderAnchorMissing, err)
	}
}

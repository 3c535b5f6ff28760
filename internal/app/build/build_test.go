package build

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/John-Robertt/standalone/internal/config"
	"github.com/John-Robertt/standalone/internal/domain"
	"github.com/John-Robertt/standalone/internal/loader"
	"github.com/John-Robertt/standalone/internal/page"
)

type recObserver struct {
	mu       sync.Mutex
	started  bool
	movies   int
	sample   domain.MovieSample
	warnings []string
	done     *domain.BuildReport
}

func (o *recObserver) OnStart(config.EffectiveConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = true
}

func (o *recObserver) OnCatalog(_ string, movies int, sample domain.MovieSample, _ bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.movies = movies
	o.sample = sample
}

func (o *recObserver) OnWarning(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.warnings = append(o.warnings, msg)
}

func (o *recObserver) OnDone(rr domain.BuildReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.done = &rr
}

const pageScript = "let moviesData = [];\n\n"

// newSite 在临时目录准备一套最小输入，返回 (输入目录, 首选输出目录)。
func newSite(t *testing.T, moviesJSON, script string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "movies.json"), moviesJSON)
	writeTestFile(t, filepath.Join(dir, "index.html"), "<!DOCTYPE html><html></html>")
	writeTestFile(t, filepath.Join(dir, "styles.css"), "body { margin: 0; }")
	writeTestFile(t, filepath.Join(dir, "script.js"), script)
	return dir, t.TempDir()
}

func effFor(t *testing.T, dir, exeDir string, cli config.CLIArgs) config.EffectiveConfig {
	t.Helper()
	eff, err := config.LoadEffective(dir, exeDir, cli)
	if err != nil {
		t.Fatalf("LoadEffective 失败：%v", err)
	}
	return eff
}

func readInspect(t *testing.T, path string) (string, page.Inspection) {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取输出失败：%v", err)
	}
	ins, err := page.Inspect(b)
	if err != nil {
		t.Fatalf("Inspect 失败：%v", err)
	}
	return string(b), ins
}

func TestExecute_ArrayForm_RoundTrip(t *testing.T) {
	in := `[{"title":"Nosferatu","youtubeId":"abc","year":1922},{"title":"Metropolis","hlsUrl":"https://x/y.m3u8","source":"archive"}]`
	dir, exeDir := newSite(t, in, pageScript+loader.FetchLoader+"\n\nloadMovies();\n")
	obs := &recObserver{}

	rr, err := ExecuteWithObserver(context.Background(), effFor(t, dir, exeDir, config.CLIArgs{}), obs)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rr.Movies != 2 || rr.CatalogForm != domain.CatalogFormArray {
		t.Fatalf("report 不符合预期：%+v", rr)
	}
	if rr.OutputPath != filepath.Join(exeDir, config.DefaultOutput) || rr.FallbackUsed {
		t.Fatalf("应写入首选位置：%+v", rr)
	}
	if !obs.started || obs.done == nil || obs.movies != 2 || obs.sample.Title != "Nosferatu" {
		t.Fatalf("observer 事件不完整：%+v", obs)
	}

	_, ins := readInspect(t, rr.OutputPath)
	if len(ins.Movies) != rr.Movies {
		t.Fatalf("报告条数 %d 与内嵌条数 %d 不一致", rr.Movies, len(ins.Movies))
	}
	assertJSONEqual(t, in, ins.Movies)
}

func TestExecute_ObjectForm_Normalized(t *testing.T) {
	in := `{"movies":[{"title":"A"},{"title":"B"},{"title":"C"}],"generatedAt":"2024-01-01"}`
	dir, exeDir := newSite(t, in, pageScript+loader.FetchLoader)

	rr, err := Execute(context.Background(), effFor(t, dir, exeDir, config.CLIArgs{}))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rr.Movies != 3 || rr.CatalogForm != domain.CatalogFormObject {
		t.Fatalf("应按 movies 数组计数：%+v", rr)
	}

	_, ins := readInspect(t, rr.OutputPath)
	assertJSONEqual(t, `[{"title":"A"},{"title":"B"},{"title":"C"}]`, ins.Movies)
}

func TestExecute_LoaderRewritten(t *testing.T) {
	dir, exeDir := newSite(t, `[]`, pageScript+loader.FetchLoader+"\n")

	rr, err := Execute(context.Background(), effFor(t, dir, exeDir, config.CLIArgs{}))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !rr.LoaderRewritten || rr.LoaderMatches != 1 {
		t.Fatalf("应完成 loader 改写：%+v", rr)
	}
	out, _ := readInspect(t, rr.OutputPath)
	if strings.Contains(out, loader.FetchCall) {
		t.Fatalf("输出不应包含 %s", loader.FetchCall)
	}
	if !strings.Contains(out, pageScript+loader.EmbeddedLoader+"\n") {
		t.Fatalf("输出应包含改写后的脚本")
	}
}

func TestExecute_LoaderNoMatch_ScriptUnchanged(t *testing.T) {
	script := pageScript + "async function loadMovies() { const r = await fetch('movies.json'); }\n"
	dir, exeDir := newSite(t, `[{"title":"A"}]`, script)
	obs := &recObserver{}

	rr, err := ExecuteWithObserver(context.Background(), effFor(t, dir, exeDir, config.CLIArgs{}), obs)
	if err != nil {
		t.Fatalf("非 strict 模式不应失败：%v", err)
	}
	if rr.LoaderRewritten {
		t.Fatalf("未命中时不应标记改写")
	}
	if len(obs.warnings) == 0 {
		t.Fatalf("未命中时应发出告警")
	}
	out, _ := readInspect(t, rr.OutputPath)
	if !strings.Contains(out, "    <script>\n"+script+"\n    </script>") {
		t.Fatalf("未命中时脚本必须逐字节嵌入")
	}
}

func TestExecute_LoaderNoMatch_Strict(t *testing.T) {
	dir, exeDir := newSite(t, `[]`, "loadMovies();\n")

	_, err := Execute(context.Background(), effFor(t, dir, exeDir, config.CLIArgs{Strict: true, StrictSet: true}))
	if domain.Code(err) != domain.ErrCodeLoaderAnchorMissing {
		t.Fatalf("期望 %q，实际 err=%v", domain.ErrCodeLoaderAnchorMissing, err)
	}
	assertNotExist(t, filepath.Join(exeDir, config.DefaultOutput))
	assertNotExist(t, filepath.Join(dir, config.DefaultOutput))
}

func TestExecute_EmptyCatalog(t *testing.T) {
	dir, exeDir := newSite(t, `[]`, pageScript+loader.FetchLoader)

	rr, err := Execute(context.Background(), effFor(t, dir, exeDir, config.CLIArgs{}))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rr.Movies != 0 {
		t.Fatalf("期望 0 条，实际 %d", rr.Movies)
	}
	out, ins := readInspect(t, rr.OutputPath)
	if ins.Movies == nil || len(ins.Movies) != 0 {
		t.Fatalf("内嵌数据应为空序列：%#v", ins.Movies)
	}
	if !strings.Contains(out, "window.embeddedMoviesData = [];") {
		t.Fatalf("空目录应嵌入 []")
	}
}

func TestExecute_InputErrors_NoOutput(t *testing.T) {
	cases := map[string]struct {
		remove string
		bad    string
		code   string
	}{
		"catalog missing":   {remove: "movies.json", code: domain.ErrCodeInputMissing},
		"catalog malformed": {bad: "movies.json", code: domain.ErrCodeInputInvalid},
		"index missing":     {remove: "index.html", code: domain.ErrCodeInputMissing},
		"styles missing":    {remove: "styles.css", code: domain.ErrCodeInputMissing},
		"script missing":    {remove: "script.js", code: domain.ErrCodeInputMissing},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dir, exeDir := newSite(t, `[]`, pageScript)
			if tc.remove != "" {
				if err := os.Remove(filepath.Join(dir, tc.remove)); err != nil {
					t.Fatalf("删除文件失败：%v", err)
				}
			}
			if tc.bad != "" {
				writeTestFile(t, filepath.Join(dir, tc.bad), `[{"title": "A",]`)
			}

			_, err := Execute(context.Background(), effFor(t, dir, exeDir, config.CLIArgs{}))
			if domain.Code(err) != tc.code {
				t.Fatalf("期望 %q，实际 err=%v", tc.code, err)
			}
			assertNotExist(t, filepath.Join(exeDir, config.DefaultOutput))
			assertNotExist(t, filepath.Join(dir, config.DefaultOutput))
		})
	}
}

func TestExecute_PrimaryUnwritable_Fallback(t *testing.T) {
	dir, _ := newSite(t, `[{"title":"A"}]`, pageScript)
	// 首选目录的父级是普通文件：MkdirAll 必然失败。
	blocker := filepath.Join(t.TempDir(), "blocker")
	writeTestFile(t, blocker, "x")
	obs := &recObserver{}

	rr, err := ExecuteWithObserver(context.Background(), effFor(t, dir, filepath.Join(blocker, "bin"), config.CLIArgs{}), obs)
	if err != nil {
		t.Fatalf("回退写入应成功：%v", err)
	}
	want := filepath.Join(dir, config.DefaultOutput)
	if rr.OutputPath != want || !rr.FallbackUsed || rr.PrimaryError == "" {
		t.Fatalf("应回退到 %q：%+v", want, rr)
	}
	if obs.done == nil || obs.done.OutputPath != want {
		t.Fatalf("成功事件应引用回退路径：%+v", obs.done)
	}
	if len(obs.warnings) == 0 {
		t.Fatalf("首选位置失败应发出告警")
	}
	readInspect(t, want)
}

func TestExecute_BothUnwritable(t *testing.T) {
	dir, exeDir := newSite(t, `[]`, pageScript)

	old := writeFile
	writeFile = func(string, []byte) error { return os.ErrPermission }
	defer func() { writeFile = old }()

	_, err := Execute(context.Background(), effFor(t, dir, exeDir, config.CLIArgs{}))
	if domain.Code(err) != domain.ErrCodeOutputWriteFailed {
		t.Fatalf("期望 %q，实际 err=%v", domain.ErrCodeOutputWriteFailed, err)
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("应保留底层错误：%v", err)
	}
}

func TestExecute_ScriptCloseInTitle(t *testing.T) {
	in := `[{"title":"</script><h1>pwn</h1>"}]`
	dir, exeDir := newSite(t, in, pageScript)

	rr, err := Execute(context.Background(), effFor(t, dir, exeDir, config.CLIArgs{}))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	_, ins := readInspect(t, rr.OutputPath)
	assertJSONEqual(t, in, ins.Movies)
}

func TestExecute_DoubleEscapedScriptInTitle(t *testing.T) {
	in := `[{"title":"<!--<script>"},{"title":"B"}]`
	dir, exeDir := newSite(t, in, pageScript+loader.FetchLoader+"\nloadMovies();\n")

	rr, err := Execute(context.Background(), effFor(t, dir, exeDir, config.CLIArgs{}))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	_, ins := readInspect(t, rr.OutputPath)
	if ins.Scripts != page.InlineScripts {
		t.Fatalf("数据脚本不应吞掉页面脚本：scripts=%d", ins.Scripts)
	}
	assertJSONEqual(t, in, ins.Movies)
}

func TestExecute_StyleBreaksScriptCount(t *testing.T) {
	dir, exeDir := newSite(t, `[]`, pageScript)
	writeTestFile(t, filepath.Join(dir, "styles.css"), "body{}</style><script>evil()</script><style>")

	_, err := Execute(context.Background(), effFor(t, dir, exeDir, config.CLIArgs{}))
	if domain.Code(err) != domain.ErrCodeRenderInvalid {
		t.Fatalf("期望 %q，实际 err=%v", domain.ErrCodeRenderInvalid, err)
	}
	assertNotExist(t, filepath.Join(exeDir, config.DefaultOutput))
}

func TestExecute_Canceled(t *testing.T) {
	dir, exeDir := newSite(t, `[]`, pageScript)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Execute(ctx, effFor(t, dir, exeDir, config.CLIArgs{}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，实际 %v", err)
	}
	assertNotExist(t, filepath.Join(exeDir, config.DefaultOutput))
}

func assertJSONEqual(t *testing.T, want string, got []json.RawMessage) {
	t.Helper()
	b, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	var a, g any
	if err := json.Unmarshal([]byte(want), &a); err != nil {
		t.Fatalf("解析期望值失败：%v", err)
	}
	if err := json.Unmarshal(b, &g); err != nil {
		t.Fatalf("解析实际值失败：%v", err)
	}
	if !reflect.DeepEqual(a, g) {
		t.Fatalf("内嵌数据与输入不一致：\n期望：%s\n实际：%s", want, b)
	}
}

func assertNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("不应写出 %q（err=%v）", path, err)
	}
}

func writeTestFile(t *testing.T, path, s string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(s), 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}

package page

import (
	"bytes"
	_ "embed"
	"text/template"
)

//go:embed standalone.html.tmpl
var skeleton string

// DataGlobal 是页面内嵌目录数据的全局变量（与改写后的 loader 约定一致）。
const DataGlobal = "window.embeddedMoviesData"

// InlineScripts 是骨架中内联 <script> 的数量（数据脚本 + 页面脚本）。
const InlineScripts = 2

// 骨架中必须存在的元素 id（前端脚本按 id 取元素）。
var SkeletonIDs = []string{"searchInput", "moviesContainer", "noResults", "videoModal", "videoPlayer"}

// text/template 不做上下文转义：CSS/JSON/脚本都必须逐字节嵌入。
var tmpl = template.Must(template.New("standalone").Parse(skeleton))

// Data 是渲染骨架所需的三段文本。
type Data struct {
	CSS        string
	MoviesJSON string
	Script     string
}

// Render 生成独立页面。MoviesJSON 必须已是合法的 JSON 字面量（见 catalog.Literal）。
func Render(d Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

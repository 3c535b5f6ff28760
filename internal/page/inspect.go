package page

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Inspection 是从生成页面中读回的结构信息。
type Inspection struct {
	Title string

	// Movies 是内嵌数据解析回来的序列（保持原始记录文本）。
	Movies []json.RawMessage

	// Scripts 是内联 <script> 数量（数据脚本 + 页面脚本）。
	Scripts int
	// Styles 是内联 <style> 的文本（用于核对 CSS 是否原样嵌入）。
	Styles string
}

// Inspect 解析生成的 HTML：校验骨架元素存在，并取回内嵌数据。
//
// 约束：只读；不会执行脚本，数据靠定位 "window.embeddedMoviesData = " 之后的 JSON 值取回。
func Inspect(html []byte) (Inspection, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Inspection{}, err
	}

	var missing []string
	for _, id := range SkeletonIDs {
		if doc.Find("#"+id).Length() == 0 {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return Inspection{}, fmt.Errorf("页面缺少元素：%s", strings.Join(missing, ", "))
	}

	ins := Inspection{
		Title:  strings.TrimSpace(doc.Find("title").First().Text()),
		Styles: doc.Find("head style").First().Text(),
	}

	found := false
	var derr error
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("src"); ok {
			return
		}
		ins.Scripts++
		if found || derr != nil {
			return
		}
		movies, ok, err := extractData(s.Text())
		if err != nil {
			derr = err
			return
		}
		if ok {
			ins.Movies = movies
			found = true
		}
	})
	if derr != nil {
		return Inspection{}, derr
	}
	if !found {
		return Inspection{}, errors.New("页面中未找到内嵌数据脚本")
	}
	return ins, nil
}

func extractData(script string) ([]json.RawMessage, bool, error) {
	const assign = DataGlobal + " = "
	i := strings.Index(script, assign)
	if i < 0 {
		return nil, false, nil
	}
	dec := json.NewDecoder(strings.NewReader(script[i+len(assign):]))
	var movies []json.RawMessage
	if err := dec.Decode(&movies); err != nil {
		return nil, true, fmt.Errorf("内嵌数据不是合法 JSON 数组：%w", err)
	}
	if movies == nil {
		movies = []json.RawMessage{}
	}
	return movies, true, nil
}

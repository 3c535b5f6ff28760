package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/John-Robertt/standalone/internal/domain"
)

// Literal 把规范化后的序列编码为可直接嵌入 <script> 的 JSON 字面量。
//
// 输出约定：
// - UTF-8，非 ASCII 字符保持原样（不转成 \uXXXX）
// - 两空格缩进，键顺序与数字字面量保持输入原样
// - "<" 一律写成 \u003c：记录内容既无法闭合 script 元素，也无法让解析器进入
//   "<!--<script>" 的双重转义状态（JSON 语义不变）
func Literal(movies []domain.MovieRecord) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, m := range movies {
		if i > 0 {
			compact.WriteByte(',')
		}
		if err := reencode(&compact, m); err != nil {
			return nil, fmt.Errorf("第 %d 条记录编码失败：%w", i, err)
		}
	}
	compact.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	// 合法 JSON 中 "<" 只会出现在字符串内部，整体替换是安全的。
	return bytes.ReplaceAll(out.Bytes(), []byte("<"), []byte(`\u003c`)), nil
}

type frame struct {
	obj bool
	n   int
}

// reencode 逐 token 重写一个 JSON 值：字符串经 encoder（关闭 HTML 转义）重新编码，
// 其余 token 原样输出。
func reencode(dst *bytes.Buffer, raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var stack []frame
	sep := func() {
		if len(stack) == 0 {
			return
		}
		f := &stack[len(stack)-1]
		switch {
		case f.obj && f.n%2 == 1:
			dst.WriteByte(':')
		case f.n > 0:
			dst.WriteByte(',')
		}
		f.n++
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				sep()
				dst.WriteByte(byte(v))
				stack = append(stack, frame{obj: v == '{'})
			default:
				stack = stack[:len(stack)-1]
				dst.WriteByte(byte(v))
			}
		case string:
			sep()
			if err := writeString(dst, v); err != nil {
				return err
			}
		case json.Number:
			sep()
			dst.WriteString(v.String())
		case bool:
			sep()
			if v {
				dst.WriteString("true")
			} else {
				dst.WriteString("false")
			}
		case nil:
			sep()
			dst.WriteString("null")
		}
	}
	return nil
}

func writeString(dst *bytes.Buffer, s string) error {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	dst.WriteString(strings.TrimSuffix(b.String(), "\n"))
	return nil
}

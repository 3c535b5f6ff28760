package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/John-Robertt/standalone/internal/domain"
)

// Catalog 是规范化后的影片目录。
//
// 约束：无论输入是数组还是 {"movies": [...]}，Movies 都是有序序列，嵌入时只使用它。
type Catalog struct {
	Path   string
	Form   string // domain.CatalogFormArray / domain.CatalogFormObject
	Movies []domain.MovieRecord

	// Warnings 记录不影响构建的降级（例如对象形态缺少 movies 键）。
	Warnings []string
}

// Len 返回规范化后的记录数（即嵌入页面的条数）。
func (c Catalog) Len() int { return len(c.Movies) }

// Load 读取并解析目录文件。
//
// - 文件不存在/不可读：input_missing
// - JSON 非法、存在尾随内容、顶层既不是数组也不是对象：input_invalid
// - 非法 UTF-8 或孤立的 \uD800-\uDFFF 转义：input_invalid（解码器会静默替换为 U+FFFD）
func Load(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, &domain.Error{Code: domain.ErrCodeInputMissing, Path: path, Err: err}
	}
	c, err := Parse(b)
	if err != nil {
		return Catalog{}, &domain.Error{Code: domain.ErrCodeInputInvalid, Path: path, Err: err}
	}
	c.Path = filepath.Clean(path)
	return c, nil
}

// Parse 解析目录内容并规范化为有序序列。
func Parse(b []byte) (Catalog, error) {
	if !utf8.Valid(b) {
		return Catalog{}, errors.New("内容不是合法的 UTF-8")
	}
	raw, err := decodeSingle(b)
	if err != nil {
		return Catalog{}, err
	}
	if err := checkSurrogates(raw); err != nil {
		return Catalog{}, err
	}

	switch firstByte(raw) {
	case '[':
		var movies []domain.MovieRecord
		if err := json.Unmarshal(raw, &movies); err != nil {
			return Catalog{}, err
		}
		return Catalog{Form: domain.CatalogFormArray, Movies: nonNil(movies)}, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return Catalog{}, err
		}
		c := Catalog{Form: domain.CatalogFormObject, Movies: []domain.MovieRecord{}}
		inner, ok := obj[domain.WrapperKey]
		if !ok {
			c.Warnings = append(c.Warnings, fmt.Sprintf("顶层对象缺少 %q 键，按空目录处理", domain.WrapperKey))
			return c, nil
		}
		if firstByte(inner) != '[' {
			c.Warnings = append(c.Warnings, fmt.Sprintf("%q 不是数组，按空目录处理", domain.WrapperKey))
			return c, nil
		}
		var movies []domain.MovieRecord
		if err := json.Unmarshal(inner, &movies); err != nil {
			return Catalog{}, err
		}
		c.Movies = nonNil(movies)
		return c, nil
	default:
		return Catalog{}, errors.New("顶层必须是数组或包含 movies 的对象")
	}
}

// Sample 返回首条记录的诊断摘要；目录为空时 ok=false。
func (c Catalog) Sample() (domain.MovieSample, bool) {
	if len(c.Movies) == 0 {
		return domain.MovieSample{}, false
	}
	var m map[string]any
	if err := json.Unmarshal(c.Movies[0], &m); err != nil {
		// 首条记录不是对象：字段全部视为缺失。
		return domain.MovieSample{}, true
	}
	return domain.MovieSample{
		Title:     m[domain.FieldTitle],
		HLSURL:    m[domain.FieldHLSURL],
		YouTubeID: m[domain.FieldYouTubeID],
		Source:    m[domain.FieldSource],
	}, true
}

// decodeSingle 要求输入恰好是一个 JSON 值（允许前后空白）。
func decodeSingle(b []byte) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("内容为空")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("JSON 值之后存在多余内容")
	}
	return raw, nil
}

// checkSurrogates 要求每个 \uD800-\uDBFF 后紧跟 \uDC00-\uDFFF，且低位代理不单独出现。
// 输入已是合法 JSON：反斜杠只会出现在字符串内部，可以直接线性扫描。
func checkSurrogates(raw []byte) error {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' {
			continue
		}
		if raw[i+1] != 'u' {
			i++
			continue
		}
		r := hex4(raw[i+2 : i+6])
		switch {
		case r >= 0xD800 && r <= 0xDBFF:
			if i+12 > len(raw) || raw[i+6] != '\\' || raw[i+7] != 'u' {
				return fmt.Errorf("偏移 %d：孤立的高位代理 \\u%04X", i, r)
			}
			lo := hex4(raw[i+8 : i+12])
			if lo < 0xDC00 || lo > 0xDFFF {
				return fmt.Errorf("偏移 %d：孤立的高位代理 \\u%04X", i, r)
			}
			i += 11
		case r >= 0xDC00 && r <= 0xDFFF:
			return fmt.Errorf("偏移 %d：孤立的低位代理 \\u%04X", i, r)
		default:
			i += 5
		}
	}
	return nil
}

func hex4(b []byte) rune {
	v, _ := strconv.ParseUint(string(b), 16, 32)
	return rune(v)
}

func firstByte(raw []byte) byte {
	raw = bytes.TrimLeft(raw, " \t\r\n")
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}

func nonNil(in []domain.MovieRecord) []domain.MovieRecord {
	if in == nil {
		return []domain.MovieRecord{}
	}
	return in
}

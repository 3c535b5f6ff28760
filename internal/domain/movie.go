package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// 构建过程中按名字读取的记录字段；其余字段原样透传。
const (
	FieldTitle     = "title"
	FieldHLSURL    = "hlsUrl"
	FieldYouTubeID = "youtubeId"
	FieldSource    = "source"

	// WrapperKey 是 {"movies": [...]} 形态的外层键。
	WrapperKey = "movies"
)

// MovieRecord 是一条原始影片记录。
//
// 保留原始 JSON 文本：键顺序与数字字面量在嵌入时保持不变。
type MovieRecord = json.RawMessage

// MovieSample 是首条记录的诊断摘要。字段缺失（或为 null）时为 nil，只影响这一行输出。
type MovieSample struct {
	Title     any
	HLSURL    any
	YouTubeID any
	Source    any
}

func (s MovieSample) String() string {
	parts := []string{
		FieldTitle + "=" + sampleValue(s.Title),
		FieldHLSURL + "=" + sampleValue(s.HLSURL),
		FieldYouTubeID + "=" + sampleValue(s.YouTubeID),
		FieldSource + "=" + sampleValue(s.Source),
	}
	return strings.Join(parts, " ")
}

func sampleValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "<缺失>"
	case string:
		return fmt.Sprintf("%q", x)
	default:
		return fmt.Sprint(x)
	}
}

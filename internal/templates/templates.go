package templates

import (
	"os"
	"path/filepath"

	"github.com/John-Robertt/standalone/internal/domain"
)

// Paths 是三个模板文件的位置（通常相对输入目录已解析为绝对路径）。
type Paths struct {
	Index  string
	Styles string
	Script string
}

// Set 是本次构建只读的模板文本。
//
// Index 只为完整性读取：页面骨架是内置的，不使用它的内容。
type Set struct {
	Index  string
	CSS    string
	Script string
}

// Load 依次读取 index/styles/script；任一文件缺失即返回 input_missing。
func Load(p Paths) (Set, error) {
	index, err := readText(p.Index)
	if err != nil {
		return Set{}, err
	}
	css, err := readText(p.Styles)
	if err != nil {
		return Set{}, err
	}
	script, err := readText(p.Script)
	if err != nil {
		return Set{}, err
	}
	return Set{Index: index, CSS: css, Script: script}, nil
}

func readText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", &domain.Error{Code: domain.ErrCodeInputMissing, Path: filepath.Clean(path), Err: err}
	}
	return string(b), nil
}

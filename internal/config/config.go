package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/standalone/internal/domain"
)

const (
	DefaultCatalog = "movies.json"
	DefaultIndex   = "index.html"
	DefaultStyles  = "styles.css"
	DefaultScript  = "script.js"
	DefaultOutput  = "index-standalone.html"
)

// FileNames 是配置文件的发现顺序（位于输入目录下，均为可选）。
// JSON 是 YAML 的子集，两种格式统一用 yaml 解码。
var FileNames = []string{"standalone.json", "standalone.yaml", "standalone.yml"}

// CLIArgs 保留“是否显式指定”的信息，使 --strict=false 能覆盖配置中的 strict_loader: true。
type CLIArgs struct {
	Dir string

	Out    string
	OutSet bool

	Strict    bool
	StrictSet bool

	// Report 是构建报告（JSON）的写入位置；相对路径以 cwd 为基准。
	Report    string
	ReportSet bool
}

// FileConfig 对应 standalone.json / standalone.yaml。
type FileConfig struct {
	Catalog      string `yaml:"catalog"`
	Index        string `yaml:"index"`
	Styles       string `yaml:"styles"`
	Script       string `yaml:"script"`
	Output       string `yaml:"output"`
	StrictLoader *bool  `yaml:"strict_loader"`
	Report       string `yaml:"report"`
}

// EffectiveConfig 是合并后的最终配置；路径均已是绝对路径。
type EffectiveConfig struct {
	Dir        string
	ConfigPath string // 空表示未使用配置文件

	CatalogPath string
	IndexPath   string
	StylesPath  string
	ScriptPath  string

	// OutputPath 是首选输出位置（相对值以可执行文件所在目录为基准）。
	OutputPath string
	// FallbackPath 在首选位置写入失败时使用（以调用目录为基准）；空表示没有回退。
	FallbackPath string

	StrictLoader bool

	// ReportPath 非空时，构建成功后把 BuildReport 写成 JSON。
	ReportPath string
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并。
//
// 覆盖优先级（固定）：
// - 输入目录：CLI dir > cwd
// - output：CLI --out > config output > 默认 index-standalone.html
// - strict：CLI --strict/--strict=false > config strict_loader > 默认 false
// - report：CLI --report（相对 cwd）> config report（相对输入目录）> 不写
// - 其他文件名：仅由 config 控制
//
// 路径规则：
// - 四个输入文件相对输入目录
// - 相对 output：首选 <exeDir>/<output>，回退 <cwd>/<output>
// - 绝对 output：只写该路径，不回退
func LoadEffective(cwd, exeDir string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &domain.Error{Code: domain.ErrCodeConfigInvalid, Path: cwd, Err: err}
	}
	dir := cwdAbs
	if strings.TrimSpace(cli.Dir) != "" {
		dir = absCleanFrom(cwdAbs, cli.Dir)
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return EffectiveConfig{}, &domain.Error{Code: domain.ErrCodeConfigInvalid, Path: dir, Err: err}
	}
	if !fi.IsDir() {
		return EffectiveConfig{}, &domain.Error{Code: domain.ErrCodeConfigInvalid, Path: dir, Err: errors.New("不是目录")}
	}

	fc, cfgPath, err := discover(dir)
	if err != nil {
		return EffectiveConfig{}, &domain.Error{Code: domain.ErrCodeConfigInvalid, Path: cfgPath, Err: err}
	}

	if strings.TrimSpace(exeDir) == "" {
		exeDir = cwdAbs
	}
	exeDir = absCleanFrom(cwdAbs, exeDir)

	output := pick(fc.Output, DefaultOutput)
	if cli.OutSet {
		output = strings.TrimSpace(cli.Out)
		if output == "" {
			return EffectiveConfig{}, &domain.Error{Code: domain.ErrCodeConfigInvalid, Err: errors.New("--out 不能为空")}
		}
	}

	strict := false
	if cli.StrictSet {
		strict = cli.Strict
	} else if fc.StrictLoader != nil {
		strict = *fc.StrictLoader
	}

	report := ""
	if cli.ReportSet {
		if strings.TrimSpace(cli.Report) == "" {
			return EffectiveConfig{}, &domain.Error{Code: domain.ErrCodeConfigInvalid, Err: errors.New("--report 不能为空")}
		}
		report = absCleanFrom(cwdAbs, cli.Report)
	} else if strings.TrimSpace(fc.Report) != "" {
		report = absCleanFrom(dir, fc.Report)
	}

	eff := EffectiveConfig{
		Dir:          dir,
		ConfigPath:   cfgPath,
		CatalogPath:  absCleanFrom(dir, pick(fc.Catalog, DefaultCatalog)),
		IndexPath:    absCleanFrom(dir, pick(fc.Index, DefaultIndex)),
		StylesPath:   absCleanFrom(dir, pick(fc.Styles, DefaultStyles)),
		ScriptPath:   absCleanFrom(dir, pick(fc.Script, DefaultScript)),
		StrictLoader: strict,
		ReportPath:   report,
	}
	if filepath.IsAbs(output) {
		eff.OutputPath = filepath.Clean(output)
	} else {
		eff.OutputPath = absCleanFrom(exeDir, output)
		eff.FallbackPath = absCleanFrom(cwdAbs, output)
	}
	if eff.FallbackPath == eff.OutputPath {
		eff.FallbackPath = ""
	}
	return eff, nil
}

// ExecutableDir 返回当前可执行文件所在目录（解析符号链接）。
//
// 失败时，或程序由 go run 启动（目录位于 go-build 临时目录，进程退出即被删除）时返回空串，
// 此时 LoadEffective 以 cwd 作为首选输出目录。
func ExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if p, err := filepath.EvalSymlinks(exe); err == nil {
		exe = p
	}
	return executableDir(exe)
}

func executableDir(exe string) string {
	dir := filepath.Dir(filepath.Clean(exe))
	for _, seg := range strings.Split(filepath.ToSlash(dir), "/") {
		if strings.HasPrefix(seg, "go-build") {
			return ""
		}
	}
	return dir
}

// discover 按 FileNames 顺序读取第一个存在的配置文件；都不存在时返回零值与空路径。
func discover(dir string) (FileConfig, string, error) {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		b, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return FileConfig{}, p, err
		}
		var fc FileConfig
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return FileConfig{}, p, fmt.Errorf("解析失败：%w", err)
		}
		return fc, p, nil
	}
	return FileConfig{}, "", nil
}

func pick(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

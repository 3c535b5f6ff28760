package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/John-Robertt/standalone/internal/app/build"
	"github.com/John-Robertt/standalone/internal/config"
	"github.com/John-Robertt/standalone/internal/domain"
	"github.com/John-Robertt/standalone/internal/infra/fsx"
)

func main() {
	if code := run(os.Args[1:], os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

// run 是 CLI 的全部逻辑（便于测试）；返回进程退出码。
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		return buildCmd(nil, stdout, stderr)
	}
	if isHelp(args[0]) {
		printUsage(stdout)
		return 0
	}

	switch args[0] {
	case "build":
		return buildCmd(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "未知命令：%q\n\n", args[0])
		printUsage(stderr)
		return 2
	}
}

func buildCmd(args []string, stdout, stderr io.Writer) int {
	for _, a := range args {
		if isHelp(a) {
			printBuildUsage(stdout)
			return 0
		}
	}

	cli, err := parseBuildArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		printBuildUsage(stderr)
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, config.ExecutableDir(), cli)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	rr, err := build.ExecuteWithObserver(context.Background(), eff, newConsoleUI(stdout, stderr))
	if err != nil {
		fmt.Fprintf(stderr, "构建失败：%v\n", err)
		if code := domain.Code(err); code != "" {
			fmt.Fprintf(stderr, "error_code=%s\n", code)
		}
		if hint := errorHint(err); hint != "" {
			fmt.Fprintf(stderr, "提示：%s\n", hint)
		}
		return 1
	}

	if eff.ReportPath != "" {
		if err := writeReportFile(eff.ReportPath, rr); err != nil {
			fmt.Fprintf(stderr, "写入构建报告失败：%v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "report: %s\n", eff.ReportPath)
	}
	return 0
}

// errorHint 给常见失败一句可操作的提示；没有合适提示时返回空串。
func errorHint(err error) string {
	switch {
	case domain.IsInputError(err):
		return "确认输入目录中有 movies.json、index.html、styles.css、script.js，且 movies.json 是合法 JSON"
	case fsx.IsPathTypeConflict(err):
		return "输出路径已被同名目录占用，请删除该目录或用 --out 指定其它文件"
	case domain.Code(err) == domain.ErrCodeLoaderAnchorMissing:
		return "script.js 的 loadMovies 已被修改；同步锚点文本，或去掉 --strict 以原样嵌入"
	}
	return ""
}

func writeReportFile(path string, rr domain.BuildReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFile(path, b)
}

func parseBuildArgs(args []string) (config.CLIArgs, error) {
	cli := config.CLIArgs{}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--out":
			if i+1 >= len(args) {
				return config.CLIArgs{}, fmt.Errorf("--out 需要一个值")
			}
			i++
			cli.Out = args[i]
			cli.OutSet = true
		case strings.HasPrefix(a, "--out="):
			cli.Out = strings.TrimPrefix(a, "--out=")
			cli.OutSet = true
		case a == "--report":
			if i+1 >= len(args) {
				return config.CLIArgs{}, fmt.Errorf("--report 需要一个值")
			}
			i++
			cli.Report = args[i]
			cli.ReportSet = true
		case strings.HasPrefix(a, "--report="):
			cli.Report = strings.TrimPrefix(a, "--report=")
			cli.ReportSet = true
		case a == "--strict":
			cli.Strict = true
			cli.StrictSet = true
		case strings.HasPrefix(a, "--strict="):
			v := strings.TrimPrefix(a, "--strict=")
			switch v {
			case "true":
				cli.Strict = true
			case "false":
				cli.Strict = false
			default:
				return config.CLIArgs{}, fmt.Errorf("--strict 只能是 true 或 false，实际是 %q", v)
			}
			cli.StrictSet = true
		case strings.HasPrefix(a, "-"):
			return config.CLIArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if cli.Dir != "" {
				return config.CLIArgs{}, fmt.Errorf("重复的目录：%q 与 %q", cli.Dir, a)
			}
			cli.Dir = a
		}
	}

	if cli.OutSet && strings.TrimSpace(cli.Out) == "" {
		return config.CLIArgs{}, fmt.Errorf("--out 不能为空")
	}
	if cli.ReportSet && strings.TrimSpace(cli.Report) == "" {
		return config.CLIArgs{}, fmt.Errorf("--report 不能为空")
	}
	return cli, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  standalone                 在当前目录构建 index-standalone.html
  standalone build [dir] [--strict[=true|false]] [--out <file>] [--report <file>]

命令：
  build  把 movies.json / styles.css / script.js 内联为单个 HTML 页面

使用 "standalone build --help" 查看详细说明。
`)
}

func printBuildUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  standalone build [dir] [--strict[=true|false]] [--out <file>] [--report <file>]

参数：
  dir         输入目录（默认当前目录；可放置 standalone.json 或 standalone.yaml）
  --strict    script.js 中找不到 loader 锚点时失败（默认只告警并原样嵌入）
  --out       输出文件（相对路径以程序所在目录为准，失败时回退到当前目录；
              经 go run 启动时程序位于临时目录，直接写入当前目录）
  --report    构建成功后把构建报告（JSON）写到该文件（相对当前目录）
  -h, --help  显示帮助
`)
}

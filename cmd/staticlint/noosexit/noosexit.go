// Package noosexit defines an analyzer guarding the process exit paths of
// main.main: os.Exit is never allowed there, and log.Fatal* is reported once a
// defer has been registered, because deferred cleanup (closing the storage,
// flushing the logger) would be skipped.
package noosexit

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports os.Exit calls in main.main and log.Fatal* calls that follow
// a defer statement in main.main.
var Analyzer = &analysis.Analyzer{
	Name: "noosexit",
	Doc:  "prohibits os.Exit in main.main and log.Fatal after a defer in main.main",
	Run:  run,
}

var fatalFuncs = map[string]bool{
	"Fatal":   true,
	"Fatalf":  true,
	"Fatalln": true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		// Exclude go-build cache files
		filename := pass.Fset.File(file.Pos()).Name()
		if isGoBuildCacheFile(filename) {
			continue
		}

		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Name.Name != "main" || fn.Recv != nil || fn.Body == nil {
				continue
			}
			inspectMain(pass, fn.Body)
		}
	}

	return nil, nil
}

func inspectMain(pass *analysis.Pass, body *ast.BlockStmt) {
	deferSeen := false

	ast.Inspect(body, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.FuncLit:
			// Calls inside closures run on their own schedule.
			return false

		case *ast.DeferStmt:
			deferSeen = true
			return false

		case *ast.CallExpr:
			pkgPath, name, ok := calledPackageFunc(pass, node)
			if !ok {
				return true
			}

			switch {
			case pkgPath == "os" && name == "Exit":
				pass.Reportf(node.Pos(), "avoid using os.Exit in main.main")
			case pkgPath == "log" && fatalFuncs[name] && deferSeen:
				pass.Reportf(node.Pos(), "log.%s in main.main skips the deferred calls registered before it", name)
			}
		}

		return true
	})
}

// calledPackageFunc resolves pkg.Func(...) calls through type information so
// that renamed imports are recognised too.
func calledPackageFunc(pass *analysis.Pass, call *ast.CallExpr) (string, string, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return "", "", false
	}

	ident, ok := sel.X.(*ast.Ident)
	if !ok {
		return "", "", false
	}

	pkgName, ok := pass.TypesInfo.Uses[ident].(*types.PkgName)
	if !ok {
		return "", "", false
	}

	return pkgName.Imported().Path(), sel.Sel.Name, true
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/")
}

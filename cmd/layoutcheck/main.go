// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// layoutcheck hashes the field order and types of every struct declaration
// carrying a "//pdump:layout" directive comment and compares the hash
// against a recorded manifest, failing the build when a struct a host uses
// to back a TypeOracle has changed shape without the manifest being
// updated to match. A silent layout change here would make dumps written
// by the old shape unloadable against the new one without any build-time
// signal.
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"go/ast"
	"go/types"
	"os"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/tools/go/packages"
)

const directive = "//pdump:layout"

var (
	pkgPattern = flag.String("pkg", "./...", "package pattern to scan")
	manifest   = flag.String("manifest", "layout.sum", "path to the recorded layout manifest")
	update     = flag.Bool("update", false, "rewrite the manifest instead of checking against it")
)

// layoutOf hashes name's field names and types, in declaration order, into
// a short hex digest. Field order is part of the hash deliberately: two
// structs with the same fields in a different order are a different
// layout to a loader that walks them positionally.
func layoutOf(st *types.Struct) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		fmt.Fprintf(h, "%s:%s;", f.Name(), f.Type().String())
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// find walks every tagged struct declaration reachable from pattern.
func find(pattern string) (map[string]string, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedSyntax | packages.NeedTypes |
			packages.NeedTypesInfo,
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", pattern, err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, fmt.Errorf("errors while loading %s", pattern)
	}

	found := make(map[string]string)
	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			for _, decl := range file.Decls {
				gd, ok := decl.(*ast.GenDecl)
				if !ok {
					continue
				}
				for _, spec := range gd.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					if !tagged(gd, ts) {
						continue
					}
					obj := pkg.TypesInfo.Defs[ts.Name]
					if obj == nil {
						continue
					}
					st, ok := obj.Type().Underlying().(*types.Struct)
					if !ok {
						return nil, fmt.Errorf("%s: %s is tagged %s but is not a struct",
							pkg.PkgPath, ts.Name.Name, directive)
					}
					found[pkg.PkgPath+"."+ts.Name.Name] = layoutOf(st)
				}
			}
		}
	}
	return found, nil
}

// tagged reports whether ts carries a "//pdump:layout" directive, either
// on its own doc comment or on the enclosing declaration's (covers both
// `type Foo struct{...}` and a `type (...)` block).
func tagged(gd *ast.GenDecl, ts *ast.TypeSpec) bool {
	has := func(cg *ast.CommentGroup) bool {
		if cg == nil {
			return false
		}
		for _, c := range cg.List {
			if strings.TrimSpace(c.Text) == directive {
				return true
			}
		}
		return false
	}
	return has(ts.Doc) || has(gd.Doc)
}

func loadManifest(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s: malformed line %q", path, line)
		}
		out[fields[0]] = fields[1]
	}
	return out, sc.Err()
}

func writeManifest(path string, layouts map[string]string) error {
	names := make([]string, 0, len(layouts))
	for name := range layouts {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# generated by cmd/layoutcheck -update; do not edit by hand\n")
	for _, name := range names {
		fmt.Fprintf(&b, "%s %s\n", name, layouts[name])
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func run() error {
	flag.Parse()

	found, err := find(*pkgPattern)
	if err != nil {
		return err
	}

	if *update {
		if err := writeManifest(*manifest, found); err != nil {
			return err
		}
		fmt.Printf("recorded %d layout(s) to %s\n", len(found), *manifest)
		return nil
	}

	recorded, err := loadManifest(*manifest)
	if err != nil {
		return err
	}

	var mismatches []string
	for name, sum := range found {
		want, ok := recorded[name]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: not recorded in %s (run -update)", name, *manifest))
			continue
		}
		if want != sum {
			mismatches = append(mismatches, fmt.Sprintf("%s: layout changed (recorded %s, now %s)", name, want, sum))
		}
	}
	for name := range recorded {
		if _, ok := found[name]; !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: recorded but no longer found", name))
		}
	}

	if len(mismatches) > 0 {
		sort.Strings(mismatches)
		for _, m := range mismatches {
			fmt.Fprintln(os.Stderr, m)
		}
		return fmt.Errorf("%d layout mismatch(es)", len(mismatches))
	}

	fmt.Printf("%d layout(s) match %s\n", len(found), *manifest)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}

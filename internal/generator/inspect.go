package generator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
)

// DeclaredCommands parses artifact source and returns the names of its
// routing table entries in declaration order.
func DeclaredCommands(src []byte) ([]string, error) {
	file, err := parser.ParseFile(token.NewFileSet(), "artifact.go", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("failed to parse artifact: %w", err)
	}

	table := findVar(file, "commands")
	if table == nil {
		return nil, fmt.Errorf("artifact declares no commands table")
	}

	names := make([]string, 0, len(table.Elts))
	for _, elt := range table.Elts {
		entry, ok := elt.(*ast.CompositeLit)
		if !ok {
			return nil, fmt.Errorf("unexpected commands entry %T", elt)
		}

		name, err := stringField(entry, "name")
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, nil
}

func findVar(file *ast.File, name string) *ast.CompositeLit {
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.VAR {
			continue
		}

		for _, spec := range gen.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}

			for i, ident := range vs.Names {
				if ident.Name != name || i >= len(vs.Values) {
					continue
				}
				if lit, ok := vs.Values[i].(*ast.CompositeLit); ok {
					return lit
				}
			}
		}
	}

	return nil
}

func stringField(lit *ast.CompositeLit, key string) (string, error) {
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}

		ident, ok := kv.Key.(*ast.Ident)
		if !ok || ident.Name != key {
			continue
		}

		basic, ok := kv.Value.(*ast.BasicLit)
		if !ok || basic.Kind != token.STRING {
			return "", fmt.Errorf("field %s is not a string literal", key)
		}

		return strconv.Unquote(basic.Value)
	}

	return "", fmt.Errorf("entry has no %s field", key)
}

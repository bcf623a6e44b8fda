package scan

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// TreeSitterStrategy extracts import roots from a full syntax tree instead
// of line patterns. Comments never appear as named nodes, and arbitrarily
// nested group imports resolve exactly, so it reports every member the
// statement strategy's top-level split misses.
type TreeSitterStrategy struct {
	lang *sitter.Language
}

func NewTreeSitterStrategy() *TreeSitterStrategy {
	return &TreeSitterStrategy{lang: rust.GetLanguage()}
}

func (s *TreeSitterStrategy) Name() string {
	return "tree-sitter"
}

func (s *TreeSitterStrategy) Extract(ctx context.Context, content []byte) ([]string, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(s.lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree")
	}
	defer tree.Close()

	candidates := make([]string, 0)
	walkNode(tree.RootNode(), func(node *sitter.Node) {
		switch node.Type() {
		case "use_declaration":
			if argument := node.ChildByFieldName("argument"); argument != nil {
				candidates = append(candidates, rootIdentifiers(argument, content)...)
			}
		case "extern_crate_declaration":
			if name := node.ChildByFieldName("name"); name != nil {
				candidates = append(candidates, nodeText(name, content))
			}
		}
	})

	return candidates, nil
}

// rootIdentifiers resolves one use-tree node to the base identifiers it
// brings into scope. Scoped paths reduce to their leftmost segment; group
// lists contribute every member.
func rootIdentifiers(node *sitter.Node, content []byte) []string {
	switch node.Type() {
	case "identifier", "crate", "self", "super":
		return []string{nodeText(node, content)}
	case "scoped_identifier", "scoped_use_list":
		if path := node.ChildByFieldName("path"); path != nil {
			return rootIdentifiers(path, content)
		}
		// Leading :: means the next segment is the root.
		if name := node.ChildByFieldName("name"); name != nil {
			return rootIdentifiers(name, content)
		}
		if list := node.ChildByFieldName("list"); list != nil {
			return rootIdentifiers(list, content)
		}
		return nil
	case "use_list":
		names := make([]string, 0, node.NamedChildCount())
		for i := 0; i < int(node.NamedChildCount()); i++ {
			names = append(names, rootIdentifiers(node.NamedChild(i), content)...)
		}
		return names
	case "use_as_clause":
		if path := node.ChildByFieldName("path"); path != nil {
			return rootIdentifiers(path, content)
		}
		return nil
	case "use_wildcard":
		if node.NamedChildCount() > 0 {
			return rootIdentifiers(node.NamedChild(0), content)
		}
		return nil
	default:
		return nil
	}
}

func walkNode(node *sitter.Node, visit func(*sitter.Node)) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		visit(child)
		walkNode(child, visit)
	}
}

func nodeText(node *sitter.Node, content []byte) string {
	start := node.StartByte()
	end := node.EndByte()
	if start > end || int(end) > len(content) {
		return ""
	}
	return string(content[start:end])
}

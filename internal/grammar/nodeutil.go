package grammar

import sitter "github.com/tree-sitter/go-tree-sitter"

// nodeText returns the exact source slice a node spans.
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > uint(len(source)) || end > uint(len(source)) || start > end {
		return ""
	}
	return string(source[start:end])
}

// startLine returns the node's 1-based start line.
func startLine(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.StartPosition().Row) + 1
}

// endLine returns the node's 1-based end line.
func endLine(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	return int(node.EndPosition().Row) + 1
}

// childByType returns the first direct child with the given node kind.
func childByType(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// childrenByType returns all direct children with the given node kind.
func childrenByType(node *sitter.Node, kind string) []*sitter.Node {
	if node == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			out = append(out, child)
		}
	}
	return out
}

// fieldText returns the text of node's child in the given field, or "".
func fieldText(node *sitter.Node, field string, source []byte) string {
	if node == nil {
		return ""
	}
	child := node.ChildByFieldName(field)
	return nodeText(child, source)
}

// walk calls visit for every node in the subtree rooted at node, depth
// first, pre-order.
func walk(node *sitter.Node, visit func(*sitter.Node)) {
	if node == nil {
		return
	}
	visit(node)
	for i := uint(0); i < node.ChildCount(); i++ {
		walk(node.Child(i), visit)
	}
}

// signatureLine returns node's source text up to the start of its bodyField
// child (the whole node when it has no such child), with trailing whitespace
// trimmed, used as a cheap signature for declarations whose body is a
// separate block.
func signatureLine(node *sitter.Node, source []byte, bodyField string) string {
	if node == nil {
		return ""
	}
	body := node.ChildByFieldName(bodyField)
	end := node.EndByte()
	if body != nil {
		end = body.StartByte()
	}
	start := node.StartByte()
	if start > uint(len(source)) || end > uint(len(source)) || start > end {
		return nodeText(node, source)
	}
	return trimTrailing(string(source[start:end]))
}

func trimTrailing(s string) string {
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			i--
			continue
		}
		break
	}
	return s[:i]
}

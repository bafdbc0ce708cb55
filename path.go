package svfs

import (
	"path"
	"strings"

	vfserrors "github.com/dargueta/svfs/errors"
)

// splitPathComponents breaks a path into its non-empty, non-"." components.
// Leading/trailing slashes and repeated slashes collapse away. ".." is left
// alone here and handled during resolution, since it depends on tree
// structure, not string form.
func splitPathComponents(p string) []string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		out = append(out, part)
	}
	return out
}

func splitLastComponent(p string) (dir string, name string) {
	comps := splitPathComponents(p)
	if len(comps) == 0 {
		return "/", ""
	}
	name = comps[len(comps)-1]
	dir = "/" + strings.Join(comps[:len(comps)-1], "/")
	return dir, name
}

func joinPath(dir, name string) string {
	return path.Join(dir, name)
}

// resolvePath walks the tree from root following each path component,
// honoring ".." as "move to the parent of the inode we're currently at"
// (root's parent is root itself) and discarding a leading literal "root"
// component, which is a no-op name for the tree's root. The full ancestor
// stack is tracked so ".." can step up more than one level during a single
// resolution.
func (e *Engine) resolvePath(p string, withParent bool) (parent *Inode, target *Inode, err error) {
	comps := splitPathComponents(p)
	if len(comps) > 0 && comps[0] == "root" {
		comps = comps[1:]
	}

	stack := []*Inode{e.root}
	for _, c := range comps {
		if c == ".." {
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			continue
		}

		top := stack[len(stack)-1]
		if !top.IsDirectory {
			return nil, nil, vfserrors.ErrNotADirectory.WithMessage(p)
		}

		children, err := e.loadChildren(top)
		if err != nil {
			return nil, nil, err
		}

		var next *Inode
		for _, ch := range children {
			if ch.Name == c {
				next = ch
				break
			}
		}
		if next == nil {
			return nil, nil, vfserrors.ErrNotFound.WithMessage(p)
		}
		stack = append(stack, next)
	}

	target = stack[len(stack)-1]
	if len(stack) > 1 {
		parent = stack[len(stack)-2]
	} else {
		parent = target
	}
	return parent, target, nil
}

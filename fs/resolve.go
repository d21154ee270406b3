package fs

import "strings"

/// Resolve walks path as a sequence of '/'-separated components
/// starting at root (absolute paths) or cwd (relative paths), matching
/// a directory entry at each step. Repeated slashes are treated as one.
// An empty final component (a trailing slash) resolves to whatever node
// preceded it. Ground truth: find_path_node's traversal loop, minus the
// user-pointer bounds checking that function interleaves with
// traversal — that validation is the caller's job (spec.md §9's
// TOCTOU fix moves it entirely before traversal begins; see
// uaccess.ReadCString).
func Resolve(root, cwd Node, path string) (Node, bool) {
	current := cwd
	if strings.HasPrefix(path, "/") {
		current = root
	}

	for _, name := range strings.Split(path, "/") {
		if name == "" {
			continue
		}
		if current == nil || !current.IsDir() {
			return nil, false
		}
		next, ok := current.Find(name)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

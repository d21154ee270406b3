// Package fs implements the filesystem surface a process interacts
// with (spec.md §4.6): a Node abstraction for files and directories, an
// MRU-cached block device standing in for the original's Ext2/IDE
// stack, and path resolution.
package fs

import "biscuit32/errs"

/// Stat describes a node's metadata; the len syscall reads its Size.
type Stat struct {
	Size  uint32
	IsDir bool
}

/// Node is a file or directory in the tree. Directories additionally
/// support Find; calling Find on a plain file is a caller error and
/// returns ok=false.
type Node interface {
	// IsDir reports whether this node is a directory.
	IsDir() bool

	// SizeInBytes returns the file's length in bytes, or an
	// implementation-defined value for directories.
	SizeInBytes() uint32

	// Read copies min(len(buf), SizeInBytes()-offset) bytes starting at
	// offset into buf, returning the count actually copied.
	Read(offset uint32, buf []byte) (int, errs.Err_t)

	// Find looks up name as an immediate child of this directory node.
	Find(name string) (Node, bool)
}

/// MemNode is an in-memory Node: either a directory with named
/// children, or a file with a fixed byte payload. It stands in for the
/// original's Ext2 inode, since this port carries no on-disk format
/// (spec.md's Non-goals exclude a real filesystem).
type MemNode struct {
	dir      bool
	data     []byte
	children map[string]*MemNode
}

/// NewFile builds a leaf MemNode holding data.
func NewFile(data []byte) *MemNode {
	return &MemNode{data: data}
}

/// NewDir builds an empty directory MemNode.
func NewDir() *MemNode {
	return &MemNode{dir: true, children: make(map[string]*MemNode)}
}

/// AddChild links child under name in a directory node. Panics if n is
/// not a directory, since that is always a construction-time bug, not a
/// runtime condition callers need to recover from.
func (n *MemNode) AddChild(name string, child *MemNode) {
	if !n.dir {
		panic("fs: AddChild on a non-directory node")
	}
	n.children[name] = child
}

func (n *MemNode) IsDir() bool { return n.dir }

func (n *MemNode) SizeInBytes() uint32 {
	if n.dir {
		return 0
	}
	return uint32(len(n.data))
}

func (n *MemNode) Read(offset uint32, buf []byte) (int, errs.Err_t) {
	if n.dir {
		return 0, errs.EINVAL
	}
	if offset > uint32(len(n.data)) {
		return 0, errs.EINVAL
	}
	c := copy(buf, n.data[offset:])
	return c, 0
}

func (n *MemNode) Find(name string) (Node, bool) {
	if !n.dir {
		return nil, false
	}
	child, ok := n.children[name]
	if !ok {
		return nil, false
	}
	return child, true
}

/// NodeStat builds a Stat describing n.
func NodeStat(n Node) Stat {
	return Stat{Size: n.SizeInBytes(), IsDir: n.IsDir()}
}

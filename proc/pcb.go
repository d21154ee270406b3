// Package proc implements the process control block, fork/exit/join
// lifecycle, and per-process file-descriptor and semaphore tables
// (spec.md §4.5). It sits above vm (address spaces), fs (nodes), sync2
// (semaphores), and pipe (bounded buffers), and is in turn used by the
// syscall package's dispatcher.
package proc

import (
	"sync/atomic"

	"biscuit32/config"
	"biscuit32/fs"
	"biscuit32/future"
	"biscuit32/mach"
	"biscuit32/pipe"
	"biscuit32/sync2"
	"biscuit32/vm"
)

/// FileDescriptor is one process's view of an open file, pipe end, or
/// standard stream slot. Descriptors are shared by pointer across fork
/// and dup, matching the original's Shared<FileDescriptor> aliasing:
/// two FD-table slots pointing at the same *FileDescriptor observe each
/// other's offset advances and pipe traffic.
type FileDescriptor struct {
	Node     fs.Node
	offset   int32 // byte offset for plain file reads; advanced atomically
	Readable bool
	Writable bool
	Pipe     *pipe.BoundedBuffer[byte]
}

/// NewFileFD builds a descriptor open on a file node, offset 0.
func NewFileFD(node fs.Node) *FileDescriptor {
	return &FileDescriptor{Node: node, Readable: true}
}

/// NewStdFD builds a descriptor for a standard stream slot (no backing
/// node or pipe; terminal I/O goes through Node == nil, Pipe == nil).
func NewStdFD(readable, writable bool) *FileDescriptor {
	return &FileDescriptor{Readable: readable, Writable: writable}
}

/// NewPipeFD builds a descriptor for one end of a pipe.
func NewPipeFD(readable, writable bool, p *pipe.BoundedBuffer[byte]) *FileDescriptor {
	return &FileDescriptor{Readable: readable, Writable: writable, Pipe: p}
}

/// Offset returns the descriptor's current byte offset.
func (f *FileDescriptor) Offset() uint32 {
	return uint32(atomic.LoadInt32(&f.offset))
}

/// FetchAdd advances the offset by delta and returns the value it held
/// before the advance, mirroring Atomic<uint32>::fetch_add's use in the
/// read syscall.
func (f *FileDescriptor) FetchAdd(delta uint32) uint32 {
	before := atomic.AddInt32(&f.offset, int32(delta)) - int32(delta)
	return uint32(before)
}

/// PCB is a process control block: everything needed to describe one
/// process's address space, open files, semaphores, children, and
/// signal-handling state. Ground truth: pcb.h's PCB class.
type PCB struct {
	AS          *vm.AddressSpace
	ExitFuture  future.Future[uint32]
	UserContext mach.UserContext

	// Children is the stack-ordered list of forked-off processes not
	// yet reaped; join/kill always act on the most recently forked
	// live child (the tail).
	Children []*PCB

	Semaphores [config.MaxSem]*sync2.Semaphore

	InHandler           bool
	HandlerEip          uint32
	HandlerUserContext  mach.UserContext

	FDs     [config.MaxFD]*FileDescriptor
	CwdNode fs.Node

	Killed  bool
	KilledV uint32
	Handled bool
}

/// NewPCB builds a fresh PCB over as, with stdin/stdout/stderr-style
/// slots 0..2 pre-populated and cwd set to root, matching
/// PCB::init_file_descriptor.
func NewPCB(as *vm.AddressSpace, root fs.Node) *PCB {
	p := &PCB{AS: as, CwdNode: root}
	p.FDs[0] = NewStdFD(false, false)
	p.FDs[1] = NewStdFD(false, true)
	p.FDs[2] = NewStdFD(false, true)
	return p
}

/// AddChild appends child to the stack-ordered children list.
func (p *PCB) AddChild(child *PCB) {
	p.Children = append(p.Children, child)
}

/// IsEmpty reports whether this PCB has no live children.
func (p *PCB) IsEmpty() bool {
	return len(p.Children) == 0
}

/// PeekChild returns the most-recently-forked child without removing
/// it, or nil if there are none.
func (p *PCB) PeekChild() *PCB {
	if len(p.Children) == 0 {
		return nil
	}
	return p.Children[len(p.Children)-1]
}

/// RemoveChild pops and returns the most-recently-forked child.
func (p *PCB) RemoveChild() *PCB {
	n := len(p.Children)
	child := p.Children[n-1]
	p.Children = p.Children[:n-1]
	return child
}

/// Fork builds a child PCB: an eagerly-copied address space (vm.Fork),
/// semaphore table inherited by reference, FD table inherited by
/// reference, deep-copied VMA list (handled inside vm.Fork), and
/// copied signal state and cwd. The child is linked as p's newest
/// child. Ground truth: the PCB-construction portion of sys.cc's fork
/// handler.
func (p *PCB) Fork(g *vm.Global) *PCB {
	child := &PCB{
		AS:                 g.Fork(p.AS),
		UserContext:        p.UserContext,
		Semaphores:         p.Semaphores,
		HandlerEip:         p.HandlerEip,
		InHandler:          p.InHandler,
		HandlerUserContext: p.HandlerUserContext,
		FDs:                p.FDs,
		CwdNode:            p.CwdNode,
	}
	p.AddChild(child)
	return child
}

// Package syscall implements the kernel's syscall dispatcher (spec.md
// §4.8): given a trapped user context and a decoded syscall number and
// argument words, it performs the requested kernel-side work and
// decides whether the calling process can resume synchronously or must
// be suspended until some future event (a semaphore Up, a child's
// exit, a pipe slot) makes it runnable again. Ground truth for the
// syscall numbering and per-call semantics: sys.cc's SYS::handle_syscall.
package syscall

import (
	"strings"

	"biscuit32/config"
	"biscuit32/elfload"
	"biscuit32/errs"
	"biscuit32/fs"
	"biscuit32/kconsole"
	"biscuit32/klog"
	"biscuit32/mach"
	"biscuit32/pipe"
	"biscuit32/proc"
	"biscuit32/sched"
	"biscuit32/stats"
	"biscuit32/uaccess"
	"biscuit32/vm"
)

// Syscall numbers, ground-truthed against sys.cc's switch statement.
const (
	Exit         = 0
	Write1       = 1
	Fork         = 2
	Shutdown     = 7
	Yield        = 998
	Join         = 999
	Execl        = 1000
	Sem          = 1001
	Up           = 1002
	Down         = 1003
	SimpleSignal = 1004
	SimpleMmap   = 1005
	Sigreturn    = 1006
	SemClose     = 1007
	SimpleMunmap = 1008
	Chdir        = 1020
	Open         = 1021
	Close        = 1022
	Len          = 1023
	Read         = 1024
	Write        = 1025
	Pipe         = 1026
	Kill         = 1027
	Dup          = 1028
)

/// Args bundles the five general-purpose argument words a trap leaves
/// in the original kernel's register convention (eax holds the syscall
/// number itself, so only five remain for arguments).
type Args struct {
	A0, A1, A2, A3, A4 uint32
}

/// Kernel holds the process-independent state the dispatcher consults:
/// the shared address-space builder, the root filesystem node, the
/// console sink, and per-CPU counters. One Kernel instance is shared by
/// every CPU and process.
type Kernel struct {
	Global  *vm.Global
	Root    fs.Node
	Console *kconsole.Console
	Stats   *stats.Registry

	Halted bool
}

/// New builds a Kernel over an initialized Global and root filesystem,
/// writing terminal output to console.
func New(g *vm.Global, root fs.Node, console *kconsole.Console, st *stats.Registry) *Kernel {
	return &Kernel{Global: g, Root: root, Console: console, Stats: st}
}

/// resumeWith places rc in eax and schedules pcb to resume on cpu via m.
func (k *Kernel) resumeWith(cpu *sched.CPU, m mach.Machine, pcb *proc.PCB, rc int32) {
	pcb.UserContext.Regs.Eax = uint32(rc)
	ctx := pcb.UserContext
	cpu.Go(func() { m.Resume(ctx) })
}

/// scheduleFresh enqueues pcb to resume on cpu with its UserContext
/// exactly as it stands (used by fork's child and sigreturn, neither of
/// which wants resumeWith's eax overwrite).
func (k *Kernel) scheduleFresh(cpu *sched.CPU, m mach.Machine, pcb *proc.PCB) {
	ctx := pcb.UserContext
	cpu.Go(func() { m.Resume(ctx) })
}

func cpuStats(k *Kernel, cpu *sched.CPU) *stats.Counters {
	if k.Stats == nil {
		return nil
	}
	return k.Stats.CPU(cpu.ID)
}

/// Dispatch decodes and executes one syscall trapped from pcb on cpu/m.
/// Syscalls that complete immediately enqueue pcb's resumption on cpu
/// before returning;
/// syscalls that must block register a continuation (on a semaphore, a
/// future, or a bounded buffer) and return without resuming anyone —
/// pcb resumes later, whenever that continuation fires. Ground truth:
/// sys.cc's SYS::handle_syscall dispatch switch.
func (k *Kernel) Dispatch(cpu *sched.CPU, m mach.Machine, pcb *proc.PCB, num uint32, args Args) {
	if c := cpuStats(k, cpu); c != nil {
		c.IncSyscalls()
	}

	switch num {
	case Exit:
		pcb.ExitFuture.Set(args.A0)
		// A process that has exited is never resumed again.

	case Write1, Write:
		k.doWrite(cpu, m, pcb, args)

	case Fork:
		child := pcb.Fork(k.Global)
		child.UserContext.Regs.Eax = 0
		k.scheduleFresh(cpu, m, child)
		// The original's fork returns the literal value 1 to the
		// parent, not a child pid (spec.md §9: this kernel never hands
		// out pids).
		k.resumeWith(cpu, m, pcb, 1)

	case Shutdown:
		k.Halted = true

	case Yield:
		k.resumeWith(cpu, m, pcb, 0)

	case Join:
		child := pcb.PeekChild()
		if child == nil {
			k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
			return
		}
		child.ExitFuture.Get(func(status uint32) {
			pcb.RemoveChild()
			k.resumeWith(cpu, m, pcb, int32(status))
		})

	case Execl:
		k.doExecl(cpu, m, pcb, args)

	case Sem:
		idx, ok := pcb.AllocSem(int(args.A0))
		if !ok {
			k.resumeWith(cpu, m, pcb, errs.EMFILE.Rc())
			return
		}
		k.resumeWith(cpu, m, pcb, int32(idx))

	case Up:
		sem, ok := pcb.Sem(int(args.A0))
		if !ok {
			k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
			return
		}
		sem.Up(cpu)
		k.resumeWith(cpu, m, pcb, 0)

	case Down:
		sem, ok := pcb.Sem(int(args.A0))
		if !ok {
			k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
			return
		}
		sem.Down(cpu, func() { k.resumeWith(cpu, m, pcb, 0) })

	case SemClose:
		if !pcb.CloseSem(int(args.A0)) {
			k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
			return
		}
		k.resumeWith(cpu, m, pcb, 0)

	case SimpleSignal:
		pcb.HandlerEip = args.A0
		k.resumeWith(cpu, m, pcb, 0)

	case SimpleMmap:
		k.doMmap(cpu, m, pcb, args)

	case SimpleMunmap:
		if args.A0 < config.UserMin || args.A0 >= config.UserMax {
			k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
			return
		}
		if !pcb.AS.RemoveVMA(args.A0) {
			k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
			return
		}
		k.resumeWith(cpu, m, pcb, 0)

	case Sigreturn:
		pcb.UserContext = pcb.HandlerUserContext
		pcb.InHandler = false
		k.scheduleFresh(cpu, m, pcb)

	case Chdir:
		k.doChdir(cpu, m, pcb, args)

	case Open:
		k.doOpen(cpu, m, pcb, args)

	case Close:
		if !pcb.CloseFD(int(args.A0)) {
			k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
			return
		}
		k.resumeWith(cpu, m, pcb, 0)

	case Len:
		k.doLen(cpu, m, pcb, args)

	case Read:
		k.doRead(cpu, m, pcb, args)

	case Pipe:
		k.doPipe(cpu, m, pcb, args)

	case Kill:
		// No pid space: kill marks the caller's most recently forked
		// live child, the same child join would reap.
		child := pcb.PeekChild()
		if child == nil {
			k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
			return
		}
		child.Killed = true
		child.KilledV = args.A0
		k.resumeWith(cpu, m, pcb, 0)

	case Dup:
		slot, ok := pcb.DupFD(int(args.A0))
		if !ok {
			k.resumeWith(cpu, m, pcb, errs.EMFILE.Rc())
			return
		}
		k.resumeWith(cpu, m, pcb, int32(slot))

	default:
		klog.Fatalf("syscall: unreachable syscall number %d", num)
	}
}

func (k *Kernel) doWrite(cpu *sched.CPU, m mach.Machine, pcb *proc.PCB, args Args) {
	fd := fdAt(pcb, args.A0)
	if fd == nil || !fd.Writable {
		k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
		return
	}

	if fd.Pipe != nil {
		// Flagged quirk preserved from the original: pipe writes always
		// transfer exactly one byte, regardless of the requested count.
		if !uaccess.ValidRange(args.A1, 1) {
			k.resumeWith(cpu, m, pcb, errs.EFAULT.Rc())
			return
		}
		b := uaccess.ReadBytes(pcb.AS, args.A1, 1)[0]
		fd.Pipe.Put(cpu, b, func() { k.resumeWith(cpu, m, pcb, 1) })
		return
	}

	if !uaccess.ValidRange(args.A1, args.A2) {
		k.resumeWith(cpu, m, pcb, errs.EFAULT.Rc())
		return
	}
	data := uaccess.ReadBytes(pcb.AS, args.A1, args.A2)
	if _, err := k.Console.Write(data); err != nil {
		k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
		return
	}
	k.resumeWith(cpu, m, pcb, int32(args.A2))
}

func (k *Kernel) doRead(cpu *sched.CPU, m mach.Machine, pcb *proc.PCB, args Args) {
	fd := fdAt(pcb, args.A0)
	if fd == nil || !fd.Readable {
		k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
		return
	}

	if fd.Pipe != nil {
		if !uaccess.ValidRange(args.A1, 1) {
			k.resumeWith(cpu, m, pcb, errs.EFAULT.Rc())
			return
		}
		// Flagged quirk preserved from the original: pipe reads always
		// transfer exactly one byte, regardless of the requested count.
		fd.Pipe.Get(cpu, func(b byte) {
			uaccess.WriteBytes(pcb.AS, args.A1, []byte{b})
			k.resumeWith(cpu, m, pcb, 1)
		})
		return
	}

	if fd.Node == nil {
		k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
		return
	}
	if !uaccess.ValidRange(args.A1, args.A2) {
		k.resumeWith(cpu, m, pcb, errs.EFAULT.Rc())
		return
	}
	buf := make([]byte, args.A2)
	n, errt := fd.Node.Read(fd.Offset(), buf)
	if errt != 0 {
		k.resumeWith(cpu, m, pcb, errt.Rc())
		return
	}
	fd.FetchAdd(uint32(n))
	uaccess.WriteBytes(pcb.AS, args.A1, buf[:n])
	k.resumeWith(cpu, m, pcb, int32(n))
}

/// doMmap registers a new VMA of size bytes, at addr if nonzero or at the
/// first fit otherwise. If fd names an open, non-directory file
/// (args.A2 != -1), the mapping is file-backed: min(size, filelen-off)
/// bytes are read from the node at off into the new region up front, and
/// the remainder is left to ordinary demand-paged zero-fill, exactly as
/// an anonymous mapping's pages are. Ground truth: sys.cc:468-533.
func (k *Kernel) doMmap(cpu *sched.CPU, m mach.Machine, pcb *proc.PCB, args Args) {
	addr, size, fdArg, off := args.A0, args.A1, args.A2, args.A3
	if size == 0 || size&config.PageOffsetMask != 0 {
		k.resumeWith(cpu, m, pcb, 0)
		return
	}
	if addr != 0 {
		if addr&config.PageOffsetMask != 0 || pcb.AS.VMAs.IntersectsQueue(addr, size) {
			k.resumeWith(cpu, m, pcb, 0)
			return
		}
	}

	const noFD = ^uint32(0)
	if fdArg == noFD {
		got := pcb.AS.VMAs.AddVME(addr, size)
		k.resumeWith(cpu, m, pcb, int32(got))
		return
	}

	if off&config.PageOffsetMask != 0 {
		k.resumeWith(cpu, m, pcb, 0)
		return
	}
	fd := fdAt(pcb, fdArg)
	if fd == nil || fd.Node == nil || fd.Node.IsDir() {
		k.resumeWith(cpu, m, pcb, 0)
		return
	}

	got := pcb.AS.VMAs.AddVME(addr, size)

	filelen := fd.Node.SizeInBytes()
	if off < filelen {
		toRead := filelen - off
		if toRead > size {
			toRead = size
		}
		buf := make([]byte, toRead)
		n, errt := fd.Node.Read(off, buf)
		if errt != 0 {
			pcb.AS.RemoveVMA(got)
			k.resumeWith(cpu, m, pcb, errt.Rc())
			return
		}
		uaccess.WriteBytes(pcb.AS, got, buf[:n])
	}
	k.resumeWith(cpu, m, pcb, int32(got))
}

func (k *Kernel) doChdir(cpu *sched.CPU, m mach.Machine, pcb *proc.PCB, args Args) {
	path, ok := uaccess.ReadCString(pcb.AS, args.A0)
	if !ok {
		k.resumeWith(cpu, m, pcb, errs.EFAULT.Rc())
		return
	}
	node, ok := fs.Resolve(k.Root, pcb.CwdNode, path)
	if !ok || !node.IsDir() {
		k.resumeWith(cpu, m, pcb, errs.ENOENT.Rc())
		return
	}
	pcb.CwdNode = node
	k.resumeWith(cpu, m, pcb, 0)
}

func (k *Kernel) doOpen(cpu *sched.CPU, m mach.Machine, pcb *proc.PCB, args Args) {
	path, ok := uaccess.ReadCString(pcb.AS, args.A0)
	if !ok {
		k.resumeWith(cpu, m, pcb, errs.EFAULT.Rc())
		return
	}
	node, ok := fs.Resolve(k.Root, pcb.CwdNode, path)
	if !ok {
		k.resumeWith(cpu, m, pcb, errs.ENOENT.Rc())
		return
	}
	slot, ok := pcb.AllocFD(proc.NewFileFD(node))
	if !ok {
		k.resumeWith(cpu, m, pcb, errs.EMFILE.Rc())
		return
	}
	k.resumeWith(cpu, m, pcb, int32(slot))
}

func (k *Kernel) doLen(cpu *sched.CPU, m mach.Machine, pcb *proc.PCB, args Args) {
	fd := fdAt(pcb, args.A0)
	if fd == nil {
		k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
		return
	}
	if fd.Node == nil {
		k.resumeWith(cpu, m, pcb, 0)
		return
	}
	k.resumeWith(cpu, m, pcb, int32(fs.NodeStat(fd.Node).Size))
}

func (k *Kernel) doPipe(cpu *sched.CPU, m mach.Machine, pcb *proc.PCB, args Args) {
	buf := pipe.NewBoundedBuffer[byte](config.PipeCapacity)

	rSlot, ok := pcb.AllocFD(proc.NewPipeFD(true, false, buf))
	if !ok {
		k.resumeWith(cpu, m, pcb, errs.EMFILE.Rc())
		return
	}
	wSlot, ok := pcb.AllocFD(proc.NewPipeFD(false, true, buf))
	if !ok {
		pcb.CloseFD(rSlot)
		k.resumeWith(cpu, m, pcb, errs.EMFILE.Rc())
		return
	}

	if !uaccess.ValidRange(args.A0, 8) {
		pcb.CloseFD(rSlot)
		pcb.CloseFD(wSlot)
		k.resumeWith(cpu, m, pcb, errs.EFAULT.Rc())
		return
	}
	uaccess.WriteUint32(pcb.AS, args.A0, uint32(rSlot))
	uaccess.WriteUint32(pcb.AS, args.A0+4, uint32(wSlot))
	k.resumeWith(cpu, m, pcb, 0)
}

/// doExecl replaces pcb's address space with a freshly loaded ELF
/// executable found at the path named by args.A0, discarding the old
/// one. Nothing is pushed onto the new user stack, not even argc: the
/// process starts at the entry point with esp at UserMax-PageSize. This
/// port carries no libc-style argv convention to honor (spec.md's
/// Non-goals exclude a userland C runtime).
func (k *Kernel) doExecl(cpu *sched.CPU, m mach.Machine, pcb *proc.PCB, args Args) {
	path, ok := uaccess.ReadCString(pcb.AS, args.A0)
	if !ok {
		k.resumeWith(cpu, m, pcb, errs.EFAULT.Rc())
		return
	}
	node, ok := fs.Resolve(k.Root, pcb.CwdNode, path)
	if !ok || node.IsDir() {
		k.resumeWith(cpu, m, pcb, errs.ENOENT.Rc())
		return
	}

	data := make([]byte, node.SizeInBytes())
	if _, errt := node.Read(0, data); errt != 0 {
		k.resumeWith(cpu, m, pcb, errt.Rc())
		return
	}
	r := strings.NewReader(string(data))

	ok2, err := elfload.ValidLoad(r)
	if err != nil || !ok2 {
		k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
		return
	}

	newAS := k.Global.NewAddressSpace()
	entry, err := elfload.Load(r, newAS)
	if err != nil {
		k.resumeWith(cpu, m, pcb, errs.EINVAL.Rc())
		return
	}

	pcb.AS.Free()
	pcb.AS = newAS
	pcb.UserContext = mach.UserContext{}
	pcb.UserContext.IFrame.Eip = entry
	pcb.UserContext.IFrame.Esp = config.UserMax - config.PageSize
	pcb.InHandler = false

	k.resumeWith(cpu, m, pcb, 0)
}

func fdAt(pcb *proc.PCB, idx uint32) *proc.FileDescriptor {
	if idx >= uint32(len(pcb.FDs)) {
		return nil
	}
	return pcb.FDs[idx]
}

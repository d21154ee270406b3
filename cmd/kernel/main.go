// Command kernel is the boot entry point: it builds the physical frame
// pool, the shared virtual-memory state, an in-memory root filesystem,
// and the syscall dispatcher, loads the init ELF binary named on the
// command line into the first process, and runs one event loop per
// logical CPU. Nothing stops those loops: the shutdown syscall only
// sets Kernel.Halted, which this command does not watch. Ground
// truth: chentry.go's main for the single-binary-command shape, and
// sys.cc's SYS::init for the boot sequence this wiring reproduces in
// miniature (frame pool -> VMM::global_init -> first process -> event
// loop), generalized from one-shot assembly boot to a Go process
// startable under `go run`.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"biscuit32/config"
	"biscuit32/elfload"
	"biscuit32/fs"
	"biscuit32/kconsole"
	"biscuit32/klog"
	"biscuit32/mach"
	"biscuit32/mem"
	"biscuit32/proc"
	"biscuit32/sched"
	"biscuit32/stats"
	syscallpkg "biscuit32/syscall"
	"biscuit32/vm"
)

func main() {
	nframes := flag.Int("frames", 1<<16, "physical frame pool size, in 4 KiB frames")
	ncpu := flag.Int("cpus", 1, "number of per-CPU event loops to run")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <init-elf-path>\n", os.Args[0])
		os.Exit(1)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		klog.Fatalf("opening init binary: %v", err)
	}
	defer f.Close()

	alloc := mem.NewAllocator(*nframes)
	global := vm.NewGlobal(alloc)
	global.Init()

	root := fs.NewDir()
	st := stats.NewRegistry(*ncpu)
	k := syscallpkg.New(global, root, kconsole.New(os.Stdout), st)

	ok, err := elfload.ValidLoad(f)
	if err != nil || !ok {
		klog.Fatalf("init binary failed validation: %v", err)
	}

	as := global.NewAddressSpace()
	entry, err := elfload.Load(f, as)
	if err != nil {
		klog.Fatalf("loading init binary: %v", err)
	}

	initPCB := proc.NewPCB(as, root)
	initPCB.UserContext.IFrame.Eip = entry
	initPCB.UserContext.IFrame.Esp = config.UserMax - config.PageSize

	cpus := make([]*sched.CPU, *ncpu)
	for i := range cpus {
		cpus[i] = sched.NewCPU(i)
	}

	m := mach.NewFakeMachine() // real hardware trampolines are out of scope; see mach.Machine.
	bootCPU := cpus[0]
	bootCPU.Go(func() { m.Resume(initPCB.UserContext) })

	g, _ := errgroup.WithContext(context.Background())
	for _, cpu := range cpus {
		cpu := cpu
		g.Go(func() error {
			cpu.EventLoop()
			return nil
		})
	}

	klog.Infof("booted with %d cpu(s), %d frames", *ncpu, *nframes)

	if err := g.Wait(); err != nil {
		klog.Fatalf("cpu event loop: %v", err)
	}
}

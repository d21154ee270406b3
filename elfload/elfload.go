// Package elfload validates and loads 32-bit ELF executables into a
// process address space (spec.md §4.6), grounded on the teacher's own
// use of the standard library's debug/elf package (see
// kernel/chentry.go's chkELF) rather than a hand-rolled header parser.
package elfload

import (
	"debug/elf"
	"fmt"
	"io"

	"biscuit32/config"
	"biscuit32/vm"
)

/// ValidLoad parses the ELF header and program headers from r and
/// reports whether the file is a loadable 32-bit x86 executable for
/// this kernel: correct class/machine/version, an entry point and every
/// PT_LOAD segment inside the user range, and the entry point
/// contained in some loaded segment. Ground truth: ELF::valid_load.
func ValidLoad(r io.ReaderAt) (bool, error) {
	ef, err := elf.NewFile(r)
	if err != nil {
		return false, nil
	}
	defer ef.Close()

	if err := checkHeader(&ef.FileHeader); err != nil {
		return false, nil
	}

	entry := uint32(ef.Entry)
	if entry < config.UserMin || entry >= config.ElfEntryMax {
		return false, nil
	}

	validEntry := false
	for _, p := range ef.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		vaddr := uint32(p.Vaddr)
		memsz := uint32(p.Memsz)
		end := vaddr + memsz
		if vaddr < config.UserMin || end >= config.ElfEntryMax || end-1 < vaddr-1 {
			return false, nil
		}
		if entry >= vaddr && entry < end {
			validEntry = true
		}
	}

	return validEntry, nil
}

func checkHeader(eh *elf.FileHeader) error {
	if eh.Class != elf.ELFCLASS32 {
		return fmt.Errorf("elfload: not a 32-bit elf")
	}
	if eh.Data != elf.ELFDATA2LSB {
		return fmt.Errorf("elfload: not little-endian")
	}
	if eh.Machine != elf.EM_386 {
		return fmt.Errorf("elfload: not an i386 elf")
	}
	if eh.Version != elf.EV_CURRENT {
		return fmt.Errorf("elfload: unsupported elf version")
	}
	return nil
}

/// Load parses r's PT_LOAD segments, registers a page-aligned VMA for
/// each in as, and copies each segment's file contents into the
/// resulting pages (demand-paging them in as it goes). It does not
/// re-validate the file; callers must have already called ValidLoad.
// Returns the entry point. Ground truth: ELF::load.
func Load(r io.ReaderAt, as *vm.AddressSpace) (uint32, error) {
	ef, err := elf.NewFile(r)
	if err != nil {
		return 0, err
	}
	defer ef.Close()

	for _, p := range ef.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		vaddr := uint32(p.Vaddr)
		memsz := uint32(p.Memsz)

		alignedStart := (vaddr >> config.PageShift) << config.PageShift
		alignedEnd := (((vaddr + memsz - 1) >> config.PageShift) + 1) << config.PageShift
		as.VMAs.AddVME(alignedStart, alignedEnd-alignedStart)

		if err := loadSegment(p, vaddr, as); err != nil {
			return 0, err
		}
	}

	return uint32(ef.Entry), nil
}

func loadSegment(p *elf.Prog, vaddr uint32, as *vm.AddressSpace) error {
	remaining := int64(p.Filesz)
	va := vaddr
	sr := io.NewSectionReader(p, 0, int64(p.Filesz))
	for remaining > 0 {
		pageOff := va & config.PageOffsetMask
		chunk := int64(config.PageSize - pageOff)
		if chunk > remaining {
			chunk = remaining
		}
		page := as.Bytes(va - pageOff)
		n, err := io.ReadFull(sr, page[pageOff:pageOff+uint32(chunk)])
		if err != nil && err != io.EOF {
			return fmt.Errorf("elfload: reading segment: %w", err)
		}
		va += uint32(n)
		remaining -= int64(n)
		if n == 0 {
			break
		}
	}
	return nil
}

// Package uaccess provides the bounds-checked primitives the syscall
// dispatcher uses to read and write user memory: whole words, raw byte
// ranges, and NUL-terminated strings (spec.md §6/§7). ValidRange and
// ReadCString check addresses against the user region; the word and
// byte copy helpers do not check and rely on their callers to have
// called ValidRange first.
package uaccess

import (
	"encoding/binary"

	"biscuit32/config"
	"biscuit32/vm"
)

// maxCString bounds how many bytes ReadCString will scan before giving
// up, so a corrupt or malicious pointer can't spin the kernel forever
// looking for a NUL that will never appear.
const maxCString = 4096

/// ValidRange reports whether addr >= UserMin and addr+count < UserMax,
/// rejecting overflow the way every pointer check in the original
/// dispatcher does (addr+count wrapping past 2^32). The end bound is
/// strict, so a range ending exactly at UserMax is rejected.
func ValidRange(addr, count uint32) bool {
	end := addr + count
	if end < addr {
		return false
	}
	return addr >= config.UserMin && end < config.UserMax
}

/// ReadUint32 reads one little-endian word at va. It does not check va,
/// so it also reaches the shared page above UserMax.
func ReadUint32(as *vm.AddressSpace, va uint32) uint32 {
	pageOff := va & config.PageOffsetMask
	page := as.Bytes(va - pageOff)
	return binary.LittleEndian.Uint32(page[pageOff : pageOff+4])
}

/// WriteUint32 writes v as a little-endian word at va.
func WriteUint32(as *vm.AddressSpace, va uint32, v uint32) {
	pageOff := va & config.PageOffsetMask
	page := as.Bytes(va - pageOff)
	binary.LittleEndian.PutUint32(page[pageOff:pageOff+4], v)
}

/// ReadBytes copies n bytes starting at va into a fresh slice. Callers
/// must validate the range first.
func ReadBytes(as *vm.AddressSpace, va uint32, n uint32) []byte {
	out := make([]byte, n)
	var i uint32
	for i < n {
		pageOff := (va + i) & config.PageOffsetMask
		page := as.Bytes(va + i - pageOff)
		chunk := config.PageSize - pageOff
		if uint32(chunk) > n-i {
			chunk = n - i
		}
		copy(out[i:], page[pageOff:pageOff+uint32(chunk)])
		i += uint32(chunk)
	}
	return out
}

/// WriteBytes copies data into user memory starting at va. Callers
/// must validate the range first.
func WriteBytes(as *vm.AddressSpace, va uint32, data []byte) {
	var i int
	for i < len(data) {
		pageOff := (va + uint32(i)) & config.PageOffsetMask
		page := as.Bytes(va + uint32(i) - pageOff)
		chunk := config.PageSize - int(pageOff)
		if chunk > len(data)-i {
			chunk = len(data) - i
		}
		copy(page[pageOff:pageOff+uint32(chunk)], data[i:i+chunk])
		i += chunk
	}
}

/// ReadCString reads a NUL-terminated string starting at va, validating
/// each byte's address against the user range *before* reading it.
// This is the fix for the original find_path_node's defect (spec.md
// §9): that function scanned the whole path first and only checked the
// traversed range was in-bounds afterward, so an out-of-range pointer
// was dereferenced before ever being rejected. Here the check precedes
// every read, so an out-of-range pointer is never dereferenced.
func ReadCString(as *vm.AddressSpace, va uint32) (string, bool) {
	buf := make([]byte, 0, 64)
	for i := uint32(0); i < maxCString; i++ {
		addr := va + i
		if !ValidRange(addr, 1) {
			return "", false
		}
		pageOff := addr & config.PageOffsetMask
		b := as.Bytes(addr - pageOff)[pageOff]
		if b == 0 {
			return string(buf), true
		}
		buf = append(buf, b)
	}
	return "", false
}

package fs

import (
	"sync"

	"biscuit32/queue"
)

/// BlockDevice is the raw, uncached block source a Cache fronts. Ground
/// truth: Ide's read_all in cache.cc.
type BlockDevice interface {
	ReadBlock(blockNumber uint32, buf []byte)
}

/// MemBlockDevice is a BlockDevice backed entirely by memory, standing
/// in for the original's IDE/AHCI disk driver (out of scope per
/// spec.md's Non-goals: no real disk I/O).
type MemBlockDevice struct {
	blockSize int
	blocks    map[uint32][]byte
}

/// NewMemBlockDevice builds an empty block device with the given block
/// size.
func NewMemBlockDevice(blockSize int) *MemBlockDevice {
	return &MemBlockDevice{blockSize: blockSize, blocks: make(map[uint32][]byte)}
}

/// WriteBlock installs data as the contents of blockNumber, for test
/// setup.
func (d *MemBlockDevice) WriteBlock(blockNumber uint32, data []byte) {
	buf := make([]byte, d.blockSize)
	copy(buf, data)
	d.blocks[blockNumber] = buf
}

func (d *MemBlockDevice) ReadBlock(blockNumber uint32, buf []byte) {
	src, ok := d.blocks[blockNumber]
	if !ok {
		return // unwritten blocks read as zero, like a fresh disk image.
	}
	copy(buf, src)
}

/// Cache is an MRU-backed front for a BlockDevice: ReadBlock checks the
/// cache before falling through to the device. Ground truth: Cache in
/// cache.h/cache.cc.
type Cache struct {
	mu        sync.Mutex
	dev       BlockDevice
	blockSize int
	mru       *queue.MRU
}

/// NewCache builds a cache of blockSize-byte blocks in front of dev.
func NewCache(dev BlockDevice, blockSize int) *Cache {
	return &Cache{dev: dev, blockSize: blockSize, mru: queue.NewMRU(blockSize)}
}

/// ReadBlock fills buf (which must be at least blockSize bytes) with
/// blockNumber's contents, serving from the MRU cache on a hit and
/// populating it on a miss.
func (c *Cache) ReadBlock(blockNumber uint32, buf []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mru.Contains(blockNumber) {
		copy(buf, c.mru.Peek())
		return
	}
	c.dev.ReadBlock(blockNumber, buf)
	c.mru.Add(blockNumber, buf)
}

/// BlockSize reports the cache's fixed block size.
func (c *Cache) BlockSize() int {
	return c.blockSize
}

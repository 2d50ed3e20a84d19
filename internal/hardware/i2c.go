//go:build linux

package hardware

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
	"periph.io/x/conn/v3/physic"
)

const (
	i2cRdwrIOCTL = 0x0707 // I2C_RDWR ioctl, combined write+read with REPEATED START
	i2cMsgRD     = 0x0001 // i2c_msg flag: read direction
)

// i2cMsg mirrors struct i2c_msg from linux/i2c.h
type i2cMsg struct {
	addr   uint16
	flags  uint16
	length uint16
	_pad   uint16 // struct alignment
	buf    uintptr
}

// i2cRdwr mirrors struct i2c_rdwr_ioctl_data from linux/i2c-dev.h
type i2cRdwr struct {
	msgs  uintptr
	nmsgs uint32
}

// RdwrBus is an i2c.BusCloser talking to /dev/i2c-N directly with the
// I2C_RDWR ioctl. A register read is sent as one combined transaction
// (write register, REPEATED START, read), which some expander clones require.
type RdwrBus struct {
	mu   sync.Mutex
	path string
	fd   int
}

// OpenRdwr opens the I²C character device at path, e.g. "/dev/i2c-1".
func OpenRdwr(path string) (*RdwrBus, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %s: %w", path, err)
	}
	return &RdwrBus{path: path, fd: fd}, nil
}

func (b *RdwrBus) String() string { return b.path }

// SetSpeed is not supported from userland on a per-bus basis.
func (b *RdwrBus) SetSpeed(f physic.Frequency) error {
	return fmt.Errorf("i2c: %s: SetSpeed not supported", b.path)
}

// Tx performs the write and then the read as a single I2C_RDWR transaction.
func (b *RdwrBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return fmt.Errorf("i2c: %s: bus closed", b.path)
	}

	var msgs [2]i2cMsg
	n := 0
	if len(w) > 0 {
		msgs[n] = i2cMsg{addr: addr, flags: 0, length: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))}
		n++
	}
	if len(r) > 0 {
		msgs[n] = i2cMsg{addr: addr, flags: i2cMsgRD, length: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))}
		n++
	}
	if n == 0 {
		return nil
	}
	rdwr := i2cRdwr{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(n)}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(b.fd), i2cRdwrIOCTL, uintptr(unsafe.Pointer(&rdwr)))
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	runtime.KeepAlive(&msgs)
	if errno != 0 {
		return fmt.Errorf("i2c: I2C_RDWR 0x%02x: %w", addr, errno)
	}
	return nil
}

// Close releases the file descriptor.
func (b *RdwrBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	return err
}

package framebuffer

import (
	"encoding/binary"
	"os"
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/BeatGlow/display/v2/internal/ioctl"
)

const (
	// From <linux/fb.h>
	fbioGetVScreenInfo = 0x4600
	fbioGetFScreenInfo = 0x4602
)

// Open maps a Linux framebuffer device (fbdev) by name, typically
// /dev/fb[0..x].
func Open(name string, logger *zap.Logger) (*Device, error) {
	f, err := os.OpenFile(name, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, err
	}

	var (
		fixed  linuxFixScreenInfo
		screen linuxVarScreenInfo
	)
	if err = ioctl.Call(f.Fd(), fbioGetFScreenInfo, uintptr(unsafe.Pointer(&fixed))); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, name)
	}
	if err = ioctl.Call(f.Fd(), fbioGetVScreenInfo, uintptr(unsafe.Pointer(&screen))); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, name)
	}
	if !screen.rgb565() {
		_ = f.Close()
		return nil, errors.Wrapf(ErrFormat, "%s: %d bits per pixel", name, screen.BitsPerPixel)
	}

	mem, err := syscall.Mmap(int(f.Fd()), 0, int(fixed.SmemLen), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "%s: mmap", name)
	}

	d, err := New(name, mem, int(screen.Xres), int(screen.Yres), int(fixed.LineLength), binary.NativeEndian, logger)
	if err != nil {
		_ = syscall.Munmap(mem)
		_ = f.Close()
		return nil, err
	}
	d.release = func() error {
		if err := syscall.Munmap(mem); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}
	return d, nil
}

type linuxFixScreenInfo struct {
	ID         [16]byte  // Identification string eg "TT Builtin"
	SmemStart  uintptr   // Start of frame buffer mem
	SmemLen    uint32    // Length of frame buffer mem
	Type       uint32    // FB_TYPE_
	TypeAux    uint32    // Interleave for interleaved Planes
	Visual     uint32    // FB_VISUAL_
	Xpanstep   uint16    // Zero if no hardware panning
	Ypanstep   uint16    // Zero if no hardware panning
	Ywrapstep  uint16    // Zero if no hardware ywrap
	LineLength uint32    // Length of a line in bytes
	MmioStart  uintptr   // Start of Memory Mapped I/O (physical address)
	MmioLen    uint32    // Length of Memory Mapped I/O
	Accel      uint32    // Type of acceleration available
	Reserved   [3]uint16 // Reserved for future compatibility
}

type linuxBitField struct {
	Offset   uint32 // Beginning of bitfield
	Length   uint32 // Length of bitfield
	MsbRight uint32 // != 0 : Most significant bit is right
}

// linuxVarScreenInfo is the current video mode.
type linuxVarScreenInfo struct {
	Xres                    uint32
	Yres                    uint32
	XresVirtual             uint32
	YresVirtual             uint32
	Xoffset                 uint32
	Yoffset                 uint32
	BitsPerPixel            uint32
	Grayscale               uint32
	Red, Green, Blue, Alpha linuxBitField
	Nonstd                  uint32
	Activate                uint32
	Height                  uint32
	Width                   uint32
	AccelFlags              uint32
	Pixclock                uint32
	LeftMargin              uint32
	RightMargin             uint32
	UpperMargin             uint32
	LowerMargin             uint32
	HsyncLen                uint32
	VsyncLen                uint32
	Sync                    uint32
	Vmode                   uint32
	Rotate                  uint32
	Colorspace              uint32
	Reserved                [4]uint32
}

func (info *linuxVarScreenInfo) rgb565() bool {
	return info.BitsPerPixel == 16 &&
		info.Red.Offset == 11 && info.Red.Length == 5 &&
		info.Green.Offset == 5 && info.Green.Length == 6 &&
		info.Blue.Offset == 0 && info.Blue.Length == 5 &&
		info.Alpha.Length == 0
}

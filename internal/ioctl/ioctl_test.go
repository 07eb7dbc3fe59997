package ioctl

import "testing"

func TestCommandString(t *testing.T) {
	tests := []struct {
		command Command
		want    string
	}{
		{0x4600, "ioctl (0 bytes) 0x4600"},
		{0x80044601, "ioctl read (4 bytes) 0x4601"},
		{0x40084602, "ioctl write (8 bytes) 0x4602"},
		{0xC0104603, "ioctl write read (16 bytes) 0x4603"},
	}
	for _, test := range tests {
		t.Run(test.want, func(it *testing.T) {
			if v := test.command.String(); v != test.want {
				it.Errorf("expected %q, got %q", test.want, v)
			}
		})
	}
}

package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripANSI(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "SERVICE_PORT: 62050", "SERVICE_PORT: 62050"},
		{"color codes", "\x1b[32mSERVICE_PORT:\x1b[0m 62050", "SERVICE_PORT: 62050"},
		{"bold and reset", "\x1b[1;31mERROR\x1b[0m failed", "ERROR failed"},
		{"cursor movement", "\x1b[2K\x1b[1Gdone", "done"},
		{"single char escape", "\x1bMline", "line"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripANSI(tc.in))
		})
	}
}

func TestStripANSIIdempotent(t *testing.T) {
	in := "\x1b[36mInstall Dir:\x1b[0m /opt/marzban-node"
	once := StripANSI(in)
	assert.Equal(t, once, StripANSI(once))
}

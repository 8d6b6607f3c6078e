package hotkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		mods Modifier
		key  string
		vk   uint32
	}{
		{"F5", 0, "F5", 0x74},
		{"Ctrl+F6", ModCtrl, "F6", 0x75},
		{"F12", 0, "F12", 0x7B},
		{"Ctrl+Shift+a", ModCtrl | ModShift, "A", 'A'},
		{"Alt+7", ModAlt, "7", '7'},
		{"Ctrl+Alt+Shift+F1", ModCtrl | ModAlt | ModShift, "F1", 0x70},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			b, err := Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.mods, b.Modifiers)
			assert.Equal(t, tc.key, b.Key)
			assert.Equal(t, tc.vk, b.VK)
			assert.Equal(t, tc.in, b.String())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "F13", "Ctrl+", "Win+F5", "Ctrl+F5+G", "PageUp", "CommandOrControl+F6"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalid, in)
	}
}

func TestListener_RegisterRejectsDuplicates(t *testing.T) {
	l := NewListener(zap.NewNop())

	b, err := Parse("F5")
	require.NoError(t, err)

	require.NoError(t, l.Register(b, func() {}))
	assert.Error(t, l.Register(b, func() {}))
}

func TestListener_Dispatch(t *testing.T) {
	l := NewListener(zap.NewNop())

	fired := make(chan string, 2)
	f5, _ := Parse("F5")
	f6, _ := Parse("Ctrl+F6")
	require.NoError(t, l.Register(f5, func() { fired <- "scan" }))
	require.NoError(t, l.Register(f6, func() { fired <- "mode" }))

	l.dispatch(l.registrations, 2)
	assert.Equal(t, "mode", <-fired)

	l.dispatch(l.registrations, 99)
	assert.Empty(t, fired)
}

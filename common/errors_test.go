package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"fatal", Fatal("load kernel", ErrNotFound), KindFatalInit},
		{"wrapped fatal", fmt.Errorf("startup: %w", Fatal("open", ErrNotFound)), KindFatalInit},
		{"surface sentinel", fmt.Errorf("acquire: %w", ErrSurfaceLost), KindTransientFrame},
		{"exhausted sentinel", ErrResourceExhausted, KindTransientFrame},
		{"device lost sentinel", fmt.Errorf("submit: %w", ErrDeviceLost), KindDeviceLost},
		{"input", Ignored("scroll", errors.New("nan")), KindInputIgnored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	err := Fatal("load kernel bodies", ErrChecksumMismatch)
	assert.Equal(t, "FatalInit: load kernel bodies: checksum mismatch", err.Error())
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.True(t, IsFatal(err))
	assert.False(t, IsFatal(Transient("acquire", ErrSurfaceLost)))
	assert.False(t, IsFatal(nil))
}

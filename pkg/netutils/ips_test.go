package netutils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstValidAddress(t *testing.T) {
	req := require.New(t)

	// no specified interface
	got, err := FirstValidAddress("")
	req.NoError(err)
	req.NotEmpty(got)

	// invalid interface
	got, err = FirstValidAddress("foo")
	req.Error(err)
	req.Contains(err.Error(), "interface foo not found or is not valid")
	req.Empty(got)
}

package credit

import (
	"errors"
	"fmt"
	"testing"

	nativecommon "creditpool/native/common"
)

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNotAdmin, "NotAdmin"},
		{fmt.Errorf("wrapped: %w", ErrFundsLocked), "FundsLocked"},
		{fmt.Errorf("%w: outstanding loan", ErrNotEligible), "NotEligible"},
		{ErrInvalidAdmin, "InvalidAdmin"},
		{nativecommon.Guard(&ProtocolConfig{Paused: true}, ModuleName), "Paused"},
		{errors.New("disk full"), "Internal"},
		{errNoConfig, "Internal"},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

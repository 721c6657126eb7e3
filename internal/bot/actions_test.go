package bot

import (
	"errors"
	"testing"
)

func TestParseActionRoundTrip(t *testing.T) {
	cases := []struct {
		verb Verb
		arg  string
	}{
		{VerbRate, "5"},
		{VerbBuy, "premium"},
		{VerbConfirmPay, "AB12CD34"},
		{VerbViewCar, "123ABC02"},
		{VerbAdminBan, "ban:42"},
		{VerbAddCar, ""},
	}
	for _, tc := range cases {
		a, err := parseAction(string(tc.verb), encodeArg(tc.arg))
		if err != nil {
			t.Fatalf("%s: %v", tc.verb, err)
		}
		if a.Verb != tc.verb || a.Arg != tc.arg {
			t.Errorf("parsed %+v, want verb=%s arg=%q", a, tc.verb, tc.arg)
		}
	}
}

func TestParseActionRejectsUnknownVerb(t *testing.T) {
	for _, key := range []string{"", "selfdestruct", "rate2", "RATE"} {
		if _, err := parseAction(key, encodeArg("x")); !errors.Is(err, ErrBadAction) {
			t.Errorf("verb %q: err = %v, want ErrBadAction", key, err)
		}
	}
}

func TestParseActionRejectsStalePayload(t *testing.T) {
	for _, payload := range []string{"", "5", "0:5", "2:5", "v1:5"} {
		if _, err := parseAction(string(VerbRate), payload); !errors.Is(err, ErrBadAction) {
			t.Errorf("payload %q: err = %v, want ErrBadAction", payload, err)
		}
	}
}

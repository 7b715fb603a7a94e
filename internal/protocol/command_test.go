package protocol

import (
	"testing"

	"github.com/tmacam/dcrawl/internal/apperr"
)

func TestCommandRoundTrip(t *testing.T) {
	cases := []Command{
		{Action: "ARTICLE", Params: "1105010/423"},
		{Action: "ISSUE", Params: "20081211"},
		Sleep(300),
	}
	for _, c := range cases {
		wire := c.String()
		got, err := ParseCommand(wire)
		if err != nil {
			t.Fatalf("ParseCommand(%q): %v", wire, err)
		}
		if got != c {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, c)
		}
	}
}

func TestParseCommandRejectsMalformed(t *testing.T) {
	cases := []string{
		"ARTICLE 1105010/423",       // missing sentinel
		"ARTICLE #",                 // missing params
		"ARTICLE 1105010/423 # foo", // too many tokens
		"",
	}
	for _, body := range cases {
		_, err := ParseCommand(body)
		if !apperr.IsWrongCommandFormat(err) {
			t.Fatalf("ParseCommand(%q): expected WrongCommandFormat, got %v", body, err)
		}
	}
}

func TestSleepNeverNegative(t *testing.T) {
	c := Sleep(-5)
	n, err := c.SleepSeconds()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected floored to 0, got %d", n)
	}
}

func TestParseCommandExamples(t *testing.T) {
	examples := map[string]Command{
		"SLEEP 300 #":         {Action: "SLEEP", Params: "300"},
		"ARTICLE 1105010/423 #": {Action: "ARTICLE", Params: "1105010/423"},
		"ISSUE 20081211 #":    {Action: "ISSUE", Params: "20081211"},
	}
	for wire, want := range examples {
		got, err := ParseCommand(wire)
		if err != nil {
			t.Fatalf("ParseCommand(%q): %v", wire, err)
		}
		if got != want {
			t.Fatalf("ParseCommand(%q) = %+v, want %+v", wire, got, want)
		}
	}
}

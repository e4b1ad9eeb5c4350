package sbe_test

import (
	"slices"
	"testing"

	"i4.energy/across/ctdlink/sbe"
)

func TestLoose(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		n       int
		fields  []string
		outcome sbe.Outcome
	}{
		{name: "Single pressure", line: " 1013.25", n: 1, fields: []string{"1013.25"}, outcome: sbe.Matched},
		{name: "Single pressure in junk", line: "p= -3.10 dbar", n: 1, fields: []string{"-3.10"}, outcome: sbe.Matched},
		{name: "Single field without digits", line: "no data", n: 1, outcome: sbe.NoMatch},
		{name: "Two fields", line: " 23.45, -1.2345", n: 2, fields: []string{" 23.45", " -1.2345"}, outcome: sbe.Matched},
		{name: "Four fields", line: " 23.45, -1.2345, 34.5678,  512", n: 4,
			fields: []string{" 23.45", " -1.2345", " 34.5678", "  512"}, outcome: sbe.Matched},
		{name: "Too few fields", line: " 23.45, -1.2345", n: 3, outcome: sbe.NoMatch},
		{name: "Empty fields pass", line: ",,", n: 3, fields: []string{"", "", ""}, outcome: sbe.Matched},
		{name: "Extra fields are left over", line: "1,2,3", n: 2, fields: []string{"1", "2"}, outcome: sbe.Matched},
		{name: "Zero fields", line: "1", n: 0, outcome: sbe.EngineFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, outcome := sbe.Default.Loose(tt.line, tt.n)
			if outcome != tt.outcome {
				t.Fatalf("expected %v, got %v", tt.outcome, outcome)
			}
			if outcome == sbe.Matched && !slices.Equal(fields, tt.fields) {
				t.Errorf("expected fields %q, got %q", tt.fields, fields)
			}
		})
	}
}

func TestStrict(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		layout  sbe.Layout
		outcome sbe.Outcome
	}{
		{name: "P", line: " 1013.25", layout: sbe.LayoutP, outcome: sbe.Matched},
		{name: "P negative", line: "  -0.12", layout: sbe.LayoutP, outcome: sbe.Matched},
		{name: "P missing blank", line: "1013.25", layout: sbe.LayoutP, outcome: sbe.NoMatch},
		{name: "P too many integer digits", line: " 10130.25", layout: sbe.LayoutP, outcome: sbe.NoMatch},
		{name: "PT", line: " 23.45, -1.2345", layout: sbe.LayoutPT, outcome: sbe.Matched},
		{name: "PT three temperature decimals", line: " 23.45, -1.234", layout: sbe.LayoutPT, outcome: sbe.NoMatch},
		{name: "PTS", line: " 23.45, -1.2345, 34.5678", layout: sbe.LayoutPTS, outcome: sbe.Matched},
		{name: "PTSO", line: " 23.45, -1.2345, 34.5678,  512", layout: sbe.LayoutPTSO, outcome: sbe.Matched},
		{name: "PTSO one pressure decimal", line: "23.4,-1.2345,34.5678,512", layout: sbe.LayoutPTSO, outcome: sbe.NoMatch},
		{name: "PTSO signed oxygen", line: " 23.45, -1.2345, 34.5678, -512", layout: sbe.LayoutPTSO, outcome: sbe.NoMatch},
		{name: "PTSO six digit oxygen", line: " 23.45, -1.2345, 34.5678, 123456", layout: sbe.LayoutPTSO, outcome: sbe.NoMatch},
		{name: "PT with trailing field", line: " 23.45, -1.2345, 34.5678", layout: sbe.LayoutPT, outcome: sbe.NoMatch},
		{name: "Empty layout", line: " 23.45", layout: nil, outcome: sbe.EngineFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if outcome := sbe.Default.Strict(tt.line, tt.layout); outcome != tt.outcome {
				t.Errorf("expected %v, got %v for %q", tt.outcome, outcome, tt.line)
			}
		})
	}
}

func TestStrictPattern(t *testing.T) {
	want := `^[ ]+(-?[0-9]{1,4}\.[0-9]{2}),[ ]+(-?[0-9]{1,2}\.[0-9]{4})$`
	if got := sbe.StrictPattern(sbe.LayoutPT); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		field string
		value float64
		ok    bool
	}{
		{field: " 23.45", value: 23.45, ok: true},
		{field: " -1.2345", value: -1.2345, ok: true},
		{field: "  512", value: 512, ok: true},
		{field: "t=+4.5C", value: 4.5, ok: true},
		{field: "1.2.3", value: 1.2, ok: true},
		{field: " - ", value: 0, ok: true},
		{field: "", ok: false},
		{field: "abc", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			value, ok := sbe.Default.Number(tt.field)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && value != tt.value {
				t.Errorf("expected %v, got %v", tt.value, value)
			}
		})
	}
}

func TestSerialNumber(t *testing.T) {
	serial, outcome := sbe.Default.SerialNumber("SBE 41 V 2.6  SERIAL NO. 1234  05 Mar 2010")
	if outcome != sbe.Matched || serial != 1234 {
		t.Errorf("expected 1234/matched, got %d/%v", serial, outcome)
	}

	if _, outcome := sbe.Default.SerialNumber("vMain = 14.20, vLith = 3.10"); outcome != sbe.NoMatch {
		t.Errorf("expected no match, got %v", outcome)
	}
}

func TestFirmwareRevision(t *testing.T) {
	rev, outcome := sbe.Default.FirmwareRevision("STD   V 2.6")
	if outcome != sbe.Matched || rev != "2.6" {
		t.Errorf("expected 2.6/matched, got %q/%v", rev, outcome)
	}

	if _, outcome := sbe.Default.FirmwareRevision("SERIAL NO. 1234"); outcome != sbe.NoMatch {
		t.Errorf("expected no match, got %v", outcome)
	}
}

func TestAtof(t *testing.T) {
	tests := map[string]float64{
		" 2.000000e+00": 2,
		"  0.0":         0,
		"1.5e":          1.5,
		"-0.25 sec":     -0.25,
		"x":             0,
		"":              0,
	}
	for in, want := range tests {
		if got := sbe.Atof(in); got != want {
			t.Errorf("Atof(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestAtoi(t *testing.T) {
	tests := map[string]int{
		" 1234":    1234,
		"0042 abc": 42,
		"-7":       -7,
		"abc":      0,
		"":         0,
	}
	for in, want := range tests {
		if got := sbe.Atoi(in); got != want {
			t.Errorf("Atoi(%q): expected %d, got %d", in, want, got)
		}
	}
}

package types

import (
	"os"
	"testing"
)

func TestParseLayer(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Layer
		wantErr bool
	}{
		{"number and datatype", "1/0", Layer{1, 0}, false},
		{"bare number", "42", Layer{42, 0}, false},
		{"spaces tolerated", " 3 / 5 ", Layer{3, 5}, false},
		{"garbage", "metal1", Layer{}, true},
		{"bad datatype", "1/x", Layer{}, true},
		{"empty", "", Layer{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLayer(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLayer(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLayer(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLayerString(t *testing.T) {
	l := Layer{Number: 12, Datatype: 3}
	if got := l.String(); got != "12/3" {
		t.Errorf("String() = %q, want 12/3", got)
	}
}

func TestLayerLess(t *testing.T) {
	tests := []struct {
		a, b Layer
		want bool
	}{
		{Layer{1, 0}, Layer{2, 0}, true},
		{Layer{2, 0}, Layer{1, 0}, false},
		{Layer{1, 0}, Layer{1, 1}, true},
		{Layer{1, 1}, Layer{1, 0}, false},
		{Layer{1, 0}, Layer{1, 0}, false},
	}
	for _, tt := range tests {
		if got := tt.a.Less(tt.b); got != tt.want {
			t.Errorf("%v.Less(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDefaultCompareOptions(t *testing.T) {
	opts := DefaultCompareOptions()
	if opts.Tolerance != 10 {
		t.Errorf("default tolerance = %g, want the historical 10", opts.Tolerance)
	}
	if opts.Verbose {
		t.Error("default options are verbose")
	}
	if opts.Output != os.Stdout {
		t.Error("default output is not stdout")
	}
}

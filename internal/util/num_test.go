package util

import "testing"

func TestParsePrice(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "plain", input: "12.50", want: 12.5},
		{name: "yen symbol", input: "¥12.50", want: 12.5},
		{name: "dollar with thousands comma", input: "$1,299.00", want: 1299},
		{name: "euro decimal comma", input: "€12,5", want: 12.5},
		{name: "thousands dot", input: "1.000", want: 1000},
		{name: "garbage", input: "n/a", want: 0},
		{name: "empty", input: "", want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParsePrice(tc.input); got != tc.want {
				t.Fatalf("ParsePrice(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  int
	}{
		{name: "integer", input: "3", want: 3},
		{name: "decimal truncates", input: "2.9", want: 2},
		{name: "decimal comma truncates", input: "2,9", want: 2},
		{name: "thousand with space", input: "1 000", want: 1000},
		{name: "garbage", input: "muchos", want: 1},
		{name: "empty", input: "", want: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseQuantity(tc.input); got != tc.want {
				t.Fatalf("ParseQuantity(%q) = %d, want %d", tc.input, got, tc.want)
			}
		})
	}
}

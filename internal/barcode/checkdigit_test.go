package barcode

import "testing"

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		code string
		want bool
	}{
		{name: "valid EAN-13", code: "4006381333931", want: true},
		{name: "EAN-13 flipped check digit", code: "4006381333932", want: false},
		{name: "valid EAN-13 alt", code: "5901234123457", want: true},
		{name: "valid EAN-8", code: "73513537", want: true},
		{name: "EAN-8 flipped check digit", code: "73513538", want: false},
		{name: "valid UPC-A", code: "036000291452", want: true},
		{name: "UPC-A flipped check digit", code: "036000291453", want: false},
		{name: "empty", code: "", want: false},
		{name: "non-digit passes through", code: "CODE-128-ABC", want: true},
		{name: "unrecognized digit length passes through", code: "1234567890", want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Validate(tc.code); got != tc.want {
				t.Fatalf("Validate(%q) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}

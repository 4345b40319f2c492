// Package barcode validates the trailing check digit of EAN-13, EAN-8 and
// UPC-A codes. Other symbologies (Code 128, Code 39, QR payloads) carry no
// modulo-10 check digit and are accepted as-is.
package barcode

// Validate reports whether a scanned code passes check-digit verification.
// Digit strings of length 13, 8 and 12 are verified as EAN-13, EAN-8 and
// UPC-A respectively. Any other non-empty code passes through; an empty
// code fails.
func Validate(code string) bool {
	if code == "" {
		return false
	}
	if !digitsOnly(code) {
		return true
	}

	switch len(code) {
	case 13:
		// EAN-13 weights: even 0-based positions x1, odd x3.
		return checksumValid(code, 1, 3)
	case 8, 12:
		// EAN-8 and UPC-A swap the weight roles.
		return checksumValid(code, 3, 1)
	default:
		return true
	}
}

func checksumValid(code string, evenWeight, oddWeight int) bool {
	sum := 0
	last := len(code) - 1
	for i := 0; i < last; i++ {
		d := int(code[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if i%2 == 0 {
			sum += d * evenWeight
		} else {
			sum += d * oddWeight
		}
	}

	check := int(code[last] - '0')
	if check < 0 || check > 9 {
		return false
	}
	return (10-sum%10)%10 == check
}

func digitsOnly(code string) bool {
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

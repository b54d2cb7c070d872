package event

import "fmt"

// PaddedHex renders a 16-bit id as four lowercase hex digits.
func PaddedHex(v uint16) string {
	return fmt.Sprintf("%04x", v)
}

// FormatVIDPID joins vendor and product ids the way lsusb prints them,
// e.g. 4, 522 -> "0004:020a".
func FormatVIDPID(vid, pid uint16) string {
	return PaddedHex(vid) + ":" + PaddedHex(pid)
}

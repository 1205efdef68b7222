package promptpay

import "fmt"

const (
	crcPolynomial = 0x1021
	crcInit       = 0xFFFF
)

// CRC16 computes the CRC-16/CCITT-FALSE checksum of input (poly 0x1021,
// init 0xFFFF, no reflection, no final xor) and renders it as four
// upper-case hex digits.
func CRC16(input string) string {
	return fmt.Sprintf("%04X", crc16([]byte(input)))
}

func crc16(data []byte) uint16 {
	crc := uint16(crcInit)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

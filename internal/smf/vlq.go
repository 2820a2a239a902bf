package smf

// maxVLQBytes bounds variable-length quantities, matching the SMF limit of
// 0x0FFFFFFF.
const maxVLQBytes = 4

// AppendVLQ appends v as a MIDI variable-length quantity: 7-bit groups, most
// significant first, with the high bit set on every byte but the last.
func AppendVLQ(dst []byte, v uint32) []byte {
	var tmp [5]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7f)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		tmp[i] = byte(v&0x7f) | 0x80
	}
	return append(dst, tmp[i:]...)
}

// ReadVLQ decodes a quantity starting at off and returns it with the number
// of bytes consumed. It stops at the end of data or after four bytes, so a
// run of continuation bytes never reads past the limit.
func ReadVLQ(data []byte, off int) (value uint32, n int) {
	if off < 0 {
		return 0, 0
	}
	for off+n < len(data) && n < maxVLQBytes {
		b := data[off+n]
		value = value<<7 | uint32(b&0x7f)
		n++
		if b&0x80 == 0 {
			break
		}
	}
	return value, n
}

package utils

// Card codes are short lowercase base36 strings derived from the
// sequence value. The first 36^4 values map onto 4-character codes,
// everything above wraps into the 5-character range so old codes stay
// stable when the pool grows.

const codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

const fiveCharThreshold = 36 * 36 * 36 * 36

// CardCode encodes a sequence value as a card code.
func CardCode(seq int64) string {
	length := 4
	if seq >= fiveCharThreshold {
		length = 5
		seq -= fiveCharThreshold
	}

	buf := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		buf[i] = codeAlphabet[seq%36]
		seq /= 36
	}
	return string(buf)
}

package page

// NewTestData builds a page buffer pre-filled with data, truncating if
// data is longer than a page.
func NewTestData(data []byte) *Data {
	d := NewData()
	if len(data) > len(d) {
		data = data[:len(d)]
	}
	copy(d[:], data)
	return d
}

package units

import "fmt"

var units = []byte("BKMGT")

type Bytes struct {
	Bytes int64
}

func (b Bytes) String() string {
	return PrettyBytes(b.Bytes)
}

func PrettyBytes[T int64 | uint64 | int](b T) string {
	base := 1024.0
	i := 0
	v := float64(b)

	for v >= base && i < len(units)-1 {
		v /= base
		i++
	}

	if i == 0 {
		return fmt.Sprintf("%dB", b)
	}
	return fmt.Sprintf("%.2f%ciB", v, units[i])
}

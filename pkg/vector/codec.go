package vector

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/annidx/annidx/pkg/annerr"
)

// ParseText parses the wire text form "[f1,f2,...,fd]": ASCII decimal
// floats, comma separated, brackets mandatory, spaces optional.
func ParseText(s string) (Vector, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("%w: vector literal must be bracketed", annerr.ErrBadInput)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return nil, fmt.Errorf("%w: vector literal has no elements", annerr.ErrBadInput)
	}

	parts := strings.Split(body, ",")
	out := make(Vector, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed element %q: %v", annerr.ErrBadInput, p, err)
		}
		out[i] = float32(f)
	}
	if len(out) > MaxStorageDim {
		return nil, fmt.Errorf("%w: dimension %d exceeds max %d", annerr.ErrBadInput, len(out), MaxStorageDim)
	}
	if err := out.CheckFinite(); err != nil {
		return nil, err
	}
	return out, nil
}

// FormatText renders the wire text form "[f1,f2,...,fd]". Round-trips
// bit-exact through ParseText for any finite float32:
// strconv's 'g' verb with -1 precision always emits the shortest decimal
// that parses back to the same float32.
func (v Vector) FormatText() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// MarshalBinary encodes the wire binary form: 2-byte dim, 2 reserved
// bytes, d×float32, little-endian.
func (v Vector) MarshalBinary() ([]byte, error) {
	if len(v) > MaxStorageDim {
		return nil, fmt.Errorf("%w: dimension %d exceeds max %d", annerr.ErrBadInput, len(v), MaxStorageDim)
	}
	buf := make([]byte, 4+4*len(v))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(v)))
	// buf[2:4] reserved, left zero.
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4+4*i:8+4*i], math.Float32bits(x))
	}
	return buf, nil
}

// UnmarshalBinary decodes the wire binary form produced by MarshalBinary.
func UnmarshalBinary(data []byte) (Vector, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: binary vector truncated", annerr.ErrBadInput)
	}
	dim := int(binary.LittleEndian.Uint16(data[0:2]))
	want := 4 + 4*dim
	if len(data) != want {
		return nil, fmt.Errorf("%w: expected %d bytes for dim %d, got %d", annerr.ErrBadInput, want, dim, len(data))
	}
	out := make(Vector, dim)
	for i := 0; i < dim; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4+4*i : 8+4*i]))
	}
	if err := out.CheckFinite(); err != nil {
		return nil, err
	}
	return out, nil
}

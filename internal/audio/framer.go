package audio

// framer cuts an arbitrary PCM byte stream into fixed-size frames.
type framer struct {
	size int
	buf  []byte
}

func newFramer(size int) *framer {
	return &framer{size: size, buf: make([]byte, 0, size*2)}
}

func (f *framer) push(pcm []byte) [][]byte {
	f.buf = append(f.buf, pcm...)
	var frames [][]byte
	offset := 0
	for len(f.buf)-offset >= f.size {
		frame := make([]byte, f.size)
		copy(frame, f.buf[offset:offset+f.size])
		offset += f.size
		frames = append(frames, frame)
	}
	if offset > 0 {
		n := copy(f.buf, f.buf[offset:])
		f.buf = f.buf[:n]
	}
	return frames
}

func (f *framer) reset() {
	f.buf = f.buf[:0]
}

func (f *framer) pending() int {
	return len(f.buf)
}

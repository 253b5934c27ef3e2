package transport

import "io"

// progressReader wraps a request body and reports integer upload progress
// (0-100) as the transport drains it. Callbacks are monotonically
// non-decreasing and fire only when the rounded percentage changes.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	last     int
	onUpdate func(int)
}

func newProgressReader(r io.Reader, total int64, onUpdate func(int)) *progressReader {
	return &progressReader{r: r, total: total, last: -1, onUpdate: onUpdate}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.read += int64(n)
		p.report()
	}
	if err == io.EOF && p.total > 0 {
		// The body is fully drained; make sure 100 fires even if rounding
		// stopped short.
		p.read = p.total
		p.report()
	}
	return n, err
}

func (p *progressReader) report() {
	if p.onUpdate == nil || p.total <= 0 {
		return
	}
	pct := int(float64(p.read) / float64(p.total) * 100)
	if pct > 100 {
		pct = 100
	}
	if pct > p.last {
		p.last = pct
		p.onUpdate(pct)
	}
}

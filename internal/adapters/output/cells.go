package output

import (
	"strconv"
	"time"

	"github.com/okian/ladder/internal/domain/model"
)

// Floats are written with the shortest representation that round-trips, so a
// history read back for the rivalry stage is bit-identical to what was written.
func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Optional values are written as empty cells.
func fmtOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmtFloat(*v)
}

func fmtOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// cellParser decodes typed cells of one record and keeps the first error.
type cellParser struct {
	rec []string
	err error
}

func newCellParser(rec []string) *cellParser { return &cellParser{rec: rec} }

func (p *cellParser) Err() error { return p.err }

func (p *cellParser) keep(err error) {
	if p.err == nil && err != nil {
		p.err = err
	}
}

func (p *cellParser) Day(i int) time.Time {
	d, err := model.ParseDay(p.rec[i])
	p.keep(err)
	return d
}

func (p *cellParser) Bool(i int) bool {
	v, err := strconv.ParseBool(p.rec[i])
	p.keep(err)
	return v
}

func (p *cellParser) Int(i int) int {
	v, err := strconv.Atoi(p.rec[i])
	p.keep(err)
	return v
}

func (p *cellParser) Int64(i int) int64 {
	v, err := strconv.ParseInt(p.rec[i], 10, 64)
	p.keep(err)
	return v
}

func (p *cellParser) Float(i int) float64 {
	v, err := strconv.ParseFloat(p.rec[i], 64)
	p.keep(err)
	return v
}

func (p *cellParser) OptInt(i int) *int {
	if p.rec[i] == "" {
		return nil
	}
	v := p.Int(i)
	return &v
}

func (p *cellParser) OptFloat(i int) *float64 {
	if p.rec[i] == "" {
		return nil
	}
	v := p.Float(i)
	return &v
}

package ctd

import (
	"i4.energy/across/ctdlink/sbe"
)

// validate checks a reply line in two stages and extracts its numbers.
//
// The loose stage splits the line into one segment per field of layout;
// when it fails nothing is extracted. The strict stage checks the exact
// instrument format and only downgrades the result: the numbers of a line
// that passes the loose stage are extracted either way, and a segment
// without a number stays unset.
func (d *Driver) validate(op, line string, layout sbe.Layout) ([]Maybe[float64], Result) {
	log := d.log.With("op", op)
	values := make([]Maybe[float64], len(layout))

	fields, outcome := d.lexer.Loose(line, len(layout))
	switch outcome {
	case sbe.NoMatch:
		log.Warn("violation of loose pattern", "fields", len(layout), "line", line)
		return values, LooseMismatch
	case sbe.EngineFault:
		log.Error("exception in loose pattern", "fields", len(layout), "line", line)
		return values, RegexException
	}

	result := Success
	switch d.lexer.Strict(line, layout) {
	case sbe.NoMatch:
		log.Warn("violation of strict pattern", "layout", layout, "line", line)
		result = StrictMismatch
	case sbe.EngineFault:
		log.Error("exception in strict pattern", "layout", layout, "line", line)
		result = StrictException
	}

	for i, field := range fields {
		if i >= len(values) {
			break
		}
		if v, ok := d.lexer.Number(field); ok {
			values[i] = Some(v)
		}
	}
	return values, result
}

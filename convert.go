package convert

// convert.go is the one-shot convenience layer (§6): callers who already
// hold the entire input in memory don't need to drive a Kernel's
// push/finish lifecycle themselves. Grounded on ail/converter.go's
// ConvertRequest — construct the parser+emitter pair (there: GetParser/
// GetEmitter by Style; here: a single Kernel), run the whole payload
// through once, and discard the machinery.
func Convert(input []byte, opts Options) ([]byte, Stats, error) {
	k, err := NewKernel(opts)
	if err != nil {
		return nil, Stats{}, err
	}

	pushed, err := k.push(input)
	if err != nil {
		return nil, k.statsSnapshot(), err
	}

	final, err := k.finish()
	if err != nil {
		return nil, k.statsSnapshot(), err
	}

	out := make([]byte, 0, len(pushed)+len(final))
	out = append(out, pushed...)
	out = append(out, final...)
	return out, k.statsSnapshot(), nil
}

// ConvertToString is Convert for callers who want a string result, e.g. a
// CLI writing directly to stdout.
func ConvertToString(input []byte, opts Options) (string, Stats, error) {
	out, stats, err := Convert(input, opts)
	if err != nil {
		return "", stats, err
	}
	return string(out), stats, nil
}

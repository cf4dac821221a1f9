package media

// Wrapper is implemented by sources that decorate another source, so that
// optional capabilities of the inner source stay discoverable.
type Wrapper interface {
	Unwrap() Source
}

// AsPlayback finds the random-access capability of src, unwrapping
// decorators. Returns nil when the source cannot seek.
func AsPlayback(src Source) Playback {
	for src != nil {
		if p, ok := src.(Playback); ok {
			return p
		}
		w, ok := src.(Wrapper)
		if !ok {
			return nil
		}
		src = w.Unwrap()
	}
	return nil
}

// AsRecorder finds the recording capability of src, unwrapping decorators.
// Returns nil when the source cannot record.
func AsRecorder(src Source) Recorder {
	for src != nil {
		if r, ok := src.(Recorder); ok {
			return r
		}
		w, ok := src.(Wrapper)
		if !ok {
			return nil
		}
		src = w.Unwrap()
	}
	return nil
}

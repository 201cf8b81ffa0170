package core

import (
	"io"
	"maps"
	"slices"
)

// RetryLoader turns failure artifacts back into row sources.
type RetryLoader struct{}

// NewRetryLoader creates a loader.
func NewRetryLoader() *RetryLoader {
	return &RetryLoader{}
}

// Load returns a source over the unresolved entries of the artifact at h.
// Rows carry their original values, platforms and attributes; recorded
// violations are dropped because every retry re-validates from scratch.
func (l *RetryLoader) Load(h ArtifactHandle) (*ArtifactSource, error) {
	art, err := LoadArtifact(h)
	if err != nil {
		return nil, err
	}

	src := &ArtifactSource{handle: h, mode: art.Mode}
	for _, e := range art.Entries {
		if e.Resolved {
			continue
		}
		src.rows = append(src.rows, Row{
			Values:     maps.Clone(e.Values),
			Platforms:  slices.Clone(e.Platforms),
			Attributes: cloneAttributes(e.Attributes),
			Key:        e.Key,
		})
	}
	return src, nil
}

// ArtifactSource replays artifact entries in their recorded order.
type ArtifactSource struct {
	handle ArtifactHandle
	mode   Mode
	rows   []Row
	pos    int
}

// Mode returns the mode of the run that produced the artifact.
func (s *ArtifactSource) Mode() Mode {
	return s.mode
}

// Handle returns the artifact being replayed.
func (s *ArtifactSource) Handle() ArtifactHandle {
	return s.handle
}

// Len returns the number of rows to replay.
func (s *ArtifactSource) Len() int {
	return len(s.rows)
}

// Next returns the next row. Indexes count replayed rows from 1.
func (s *ArtifactSource) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return Row{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	row.Index = s.pos
	return row, nil
}
